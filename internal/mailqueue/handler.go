package mailqueue

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tandemplan/mailroom/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEmptyRecipient, Status: http.StatusBadRequest},
	{Error: ErrUnknownEmailType, Status: http.StatusBadRequest},
}

// Handler exposes the queue over HTTP: the scheduler-triggered drain
// plus the enqueue and stats endpoints.
type Handler struct {
	service   *Service
	worker    *Worker
	validator *validator.Validate
}

// NewHandler creates a queue handler.
func NewHandler(service *Service, worker *Worker) *Handler {
	return &Handler{
		service:   service,
		worker:    worker,
		validator: validator.New(),
	}
}

// RegisterRoutes registers queue routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/queue", func(r chi.Router) {
		r.Post("/drain", h.Drain)
		r.Post("/enqueue", h.Enqueue)
		r.Get("/stats", h.Stats)
	})
}

// DrainRequest is the optional body of POST /queue/drain.
type DrainRequest struct {
	BatchSize int `json:"batch_size" validate:"omitempty,min=1,max=500"`
}

// Drain handles POST /queue/drain: one drain invocation.
func (h *Handler) Drain(w http.ResponseWriter, r *http.Request) {
	var req DrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.worker.DrainQueue(r.Context(), req.BatchSize)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// EnqueueRequest is the body of POST /queue/enqueue.
type EnqueueRequest struct {
	RecipientEmail string          `json:"recipient_email" validate:"required,email"`
	EmailType      string          `json:"email_type" validate:"required,oneof=weekly_digest task_assigned nudge"`
	TemplateData   json.RawMessage `json:"template_data" validate:"required"`
}

// Enqueue handles POST /queue/enqueue: other application flows
// producing outbound emails through the same queue.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	item, err := h.service.Enqueue(r.Context(), req.RecipientEmail, EmailType(req.EmailType), req.TemplateData)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, map[string]string{
		"id":     item.ID,
		"status": string(item.Status),
	})
}

// Stats handles GET /queue/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int64{
		"pending":    stats.Pending,
		"processing": stats.Processing,
		"sent":       stats.Sent,
		"failed":     stats.Failed,
	})
}
