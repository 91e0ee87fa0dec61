package mailqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	item, err := NewItem("ada@example.com", EmailTypeNudge, NudgeData{
		SenderName: "Sam",
		Message:    "don't forget the venue call",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", item.RecipientEmail)
	assert.Equal(t, EmailTypeNudge, item.EmailType)
	assert.Equal(t, QueueStatusPending, item.Status)
	_, err = uuid.Parse(item.ID)
	assert.NoError(t, err)

	var data NudgeData
	require.NoError(t, json.Unmarshal(item.TemplateData, &data))
	assert.Equal(t, "Sam", data.SenderName)
}

func TestNewItem_Validation(t *testing.T) {
	_, err := NewItem("", EmailTypeNudge, NudgeData{})
	assert.ErrorIs(t, err, ErrEmptyRecipient)

	_, err = NewItem("ada@example.com", EmailType("marketing_blast"), NudgeData{})
	assert.ErrorIs(t, err, ErrUnknownEmailType)
}

func TestEmailType_Valid(t *testing.T) {
	assert.True(t, EmailTypeWeeklyDigest.Valid())
	assert.True(t, EmailTypeTaskAssigned.Valid())
	assert.True(t, EmailTypeNudge.Valid())
	assert.False(t, EmailType("").Valid())
	assert.False(t, EmailType("digest").Valid())
}

func TestWeeklyDigestData_HasActivity(t *testing.T) {
	task := TaskSummary{Title: "book flights"}

	tests := []struct {
		name     string
		data     WeeklyDigestData
		expected bool
	}{
		{"all empty", WeeklyDigestData{}, false},
		{"only dreams", WeeklyDigestData{Dreams: []DreamProgress{{Title: "Japan trip"}}}, false},
		{"completed task", WeeklyDigestData{TasksCompleted: []TaskSummary{task}}, true},
		{"due task", WeeklyDigestData{TasksDue: []TaskSummary{task}}, true},
		{"overdue task", WeeklyDigestData{TasksOverdue: []TaskSummary{task}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.data.HasActivity())
		})
	}
}

func TestDecodeTemplateData(t *testing.T) {
	due := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	item, err := NewItem("ada@example.com", EmailTypeTaskAssigned, TaskAssignedData{
		TaskTitle:    "compare mortgage rates",
		RoadmapTitle: "Buy a house",
		AssignerName: "Sam",
		DueDate:      &due,
	})
	require.NoError(t, err)

	decoded, err := DecodeTemplateData(item)
	require.NoError(t, err)

	data, ok := decoded.(*TaskAssignedData)
	require.True(t, ok)
	assert.Equal(t, "compare mortgage rates", data.TaskTitle)
	require.NotNil(t, data.DueDate)
	assert.True(t, due.Equal(*data.DueDate))
}

func TestDecodeTemplateData_UnknownType(t *testing.T) {
	item := &QueueItem{EmailType: "marketing_blast", TemplateData: json.RawMessage(`{}`)}
	_, err := DecodeTemplateData(item)
	assert.ErrorIs(t, err, ErrUnknownEmailType)
}
