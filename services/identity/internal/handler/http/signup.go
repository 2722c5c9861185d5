package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/siapee/siapee/pkg/httputil"
	"github.com/siapee/siapee/pkg/middleware"
	"github.com/siapee/siapee/pkg/pagination"
	"github.com/siapee/siapee/pkg/validator"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/service"
)

// SignupService is the part of service.SignupService the handlers use.
type SignupService interface {
	Submit(ctx context.Context, input service.SubmitInput) (*domain.SignupRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]domain.SignupRequest, int, error)
	Decide(ctx context.Context, input service.DecideInput) (*domain.SignupRequest, error)
}

// SignupHandler handles HTTP requests for the signup workflow.
type SignupHandler struct {
	service SignupService
	logger  *slog.Logger
}

// NewSignupHandler creates a new signup HTTP handler.
func NewSignupHandler(svc SignupService, logger *slog.Logger) *SignupHandler {
	return &SignupHandler{service: svc, logger: logger}
}

// SubmitSignupRequest is the JSON request body for a public signup.
type SubmitSignupRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	RoleRequested string `json:"roleRequested" validate:"required,oneof=ADMIN TEACHER SECRETARY"`
}

// DecideSignupRequest is the JSON request body for a decision.
type DecideSignupRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
}

// Submit handles POST /signup/request
func (h *SignupHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitSignupRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	created, err := h.service.Submit(r.Context(), service.SubmitInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		RoleRequested: req.RoleRequested,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, created)
}

// List handles GET /signup/requests. The body is the page of requests, newest
// first; the total and page links travel in headers.
func (h *SignupHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	reqs, total, err := h.service.List(r.Context(), r.URL.Query().Get("status"), page.PerPage, page.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if reqs == nil {
		reqs = []domain.SignupRequest{}
	}

	pagination.WriteHeaders(w, r, total, page)
	httputil.WriteJSON(w, http.StatusOK, reqs)
}

// Decide handles POST /signup/requests/{id}/decide
func (h *SignupHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DecideSignupRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	decided, err := h.service.Decide(r.Context(), service.DecideInput{
		RequestID: id,
		DeciderID: middleware.UserIDFromContext(r.Context()),
		Approved:  *req.Approved,
		Reason:    req.Reason,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, decided)
}
