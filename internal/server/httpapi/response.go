package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response is the envelope shared by all endpoints.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func OK() Response {
	return Response{Status: StatusOK}
}

func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ValidationError flattens validator errors into one readable message.
func ValidationError(errs validator.ValidationErrors) Response {
	var msgs []string
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(strings.Join(msgs, "; "))
}

// renderError maps service errors onto HTTP statuses. All token failures
// collapse to 401 regardless of the precise reason; the detailed sentinel is
// for logs and programmatic callers inside the process.
func (s *HTTPServer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error(err.Error()))
	case errors.Is(err, common.ErrInvalidCredentials):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, Error(common.ErrInvalidCredentials.Error()))
	case errors.Is(err, common.ErrResetTokenInvalid):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, Error(common.ErrResetTokenInvalid.Error()))
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenNotYetValid),
		errors.Is(err, common.ErrTokenSignature),
		errors.Is(err, common.ErrTokenMalformed):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, Error("unauthorized"))
	case errors.Is(err, common.ErrorForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, Error("forbidden"))
	case errors.Is(err, common.ErrorNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, Error("not found"))
	case errors.Is(err, common.ErrorAlreadyExists):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, Error("email is already in use"))
	default:
		s.logger.Error(r.Context(), "request failed", "err", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Error("internal error"))
	}
}
