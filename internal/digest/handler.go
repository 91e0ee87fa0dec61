package digest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tandemplan/mailroom/internal/pkg/httputil"
)

// Handler exposes the scheduler-triggered digest run over HTTP.
type Handler struct {
	builder *Builder
}

// NewHandler creates a digest handler.
func NewHandler(builder *Builder) *Handler {
	return &Handler{builder: builder}
}

// RegisterRoutes registers digest routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/digest/run", h.Run)
}

// RunRequest is the optional body of POST /digest/run. window_end
// defaults to the current time.
type RunRequest struct {
	WindowEnd *time.Time `json:"window_end"`
}

// Run handles POST /digest/run: one digest build invocation.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	windowEnd := time.Now().UTC()
	if req.WindowEnd != nil {
		windowEnd = req.WindowEnd.UTC()
	}

	result, err := h.builder.Run(r.Context(), windowEnd)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}
