package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vivekbharatha/vbank/internal/domain"
)

var validate = validator.New()

// Validate checks a decoded request body against its struct tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}

// DecodeJSON parses the request body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return Validate(dst)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// WriteError maps a domain error onto an HTTP status and a JSON error
// envelope carrying the machine-readable error code where one exists.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var code string
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		code = domain.ErrCodeAccountNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		code = domain.ErrCodeInsufficientBalance
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrAccountAlreadyExists),
		errors.Is(err, domain.ErrEmailAlreadyTaken):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = err.Error()
	}

	WriteJSON(w, status, errorResponse{Error: errorBody{
		Message: message,
		Code:    code,
	}})
}
