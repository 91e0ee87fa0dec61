// Package domain contains entities shared across mailroom modules.
package domain

import "time"

// User is a member of a couple account. Only the fields the mail
// pipeline reads are modelled here; the full profile lives in the
// main application.
type User struct {
	ID          string
	Email       string
	DisplayName string
	PartnerID   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NotificationPrefs controls which emails a user receives.
type NotificationPrefs struct {
	UserID             string
	EmailNotifications bool
	WeeklyDigest       bool
	UpdatedAt          time.Time
}
