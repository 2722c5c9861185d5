package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/siapee/siapee/pkg/httputil"
	"github.com/siapee/siapee/pkg/middleware"
	"github.com/siapee/siapee/pkg/validator"
	"github.com/siapee/siapee/services/identity/internal/domain"
	"github.com/siapee/siapee/services/identity/internal/service"
)

// UserService is the part of service.UserService the handlers use. It also
// serves as the role lookup for RequireRole.
type UserService interface {
	middleware.RoleLookup
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, input service.UpdateProfileInput) (*domain.User, error)
}

// UserHandler handles HTTP requests for the current user's profile.
type UserHandler struct {
	service UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for a profile update. Absent
// fields are left unchanged.
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,max=2048"`
}

// UserResponse is the profile projection returned to the owner.
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
	}
}

// GetProfile handles GET /users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile handles PUT /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req UpdateProfileRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, service.UpdateProfileInput{
		Name:      req.Name,
		Phone:     req.Phone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
