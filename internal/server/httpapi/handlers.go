package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dstepanov2008/shopauth/internal/server/models"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type updateProfileRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type updateRoleRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

type authResponse struct {
	Response
	User      models.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type userResponse struct {
	Response
	User models.PublicUser `json:"user"`
}

type usersResponse struct {
	Response
	Users []models.PublicUser `json:"users"`
}

// decode unmarshals the body and applies the struct validation tags. It
// writes the 400 response itself; callers just return on false.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error("failed to decode request"))
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ValidationError(validateErrs))
			return false
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error("invalid request"))
		return false
	}
	return true
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error(r.Context(), "health check failed", "err", err.Error())
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, Error("database unreachable"))
		return
	}
	render.JSON(w, r, OK())
}

// handleLogout is a stateless no-op: tokens carry no server-side state to
// revoke, the client just discards its copy. The route still sits behind
// withAuth so an unauthenticated "logout" is reported as such.
func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK())
}

// handleMe resolves the caller's own record from the token subject.
func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	user, err := s.identity.GetUser(r.Context(), claims, claims.Subject)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, userResponse{Response: OK(), User: user.Public()})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, token, err := s.identity.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, authResponse{
		Response:  OK(),
		User:      user.Public(),
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, token, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, authResponse{
		Response:  OK(),
		User:      user.Public(),
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

func (s *HTTPServer) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.identity.ForgotPassword(r.Context(), req.Email); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, OK())
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.identity.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, OK())
}

func (s *HTTPServer) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.identity.CreateAdmin(r.Context(), claimsFrom(r.Context()), req.Email, req.Name, req.Password)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, userResponse{Response: OK(), User: user.Public()})
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.GetUser(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, userResponse{Response: OK(), User: user.Public()})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.identity.ListUsers(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	render.JSON(w, r, usersResponse{Response: OK(), Users: public})
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == nil && req.Name == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error("nothing to update"))
		return
	}

	user, err := s.identity.UpdateProfile(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id"), req.Email, req.Name)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, userResponse{Response: OK(), User: user.Public()})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.identity.ChangePassword(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, OK())
}

func (s *HTTPServer) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.identity.UpdateRole(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id"), *req.IsAdmin)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, userResponse{Response: OK(), User: user.Public()})
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.DeleteUser(r.Context(), claimsFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, OK())
}
