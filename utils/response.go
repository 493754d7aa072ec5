package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-storefront/apperrors"

	"github.com/go-playground/validator/v10"
)

type errorBody struct {
	Kind    apperrors.Kind `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
}

type errorResponse struct {
	Success    bool      `json:"success"`
	Error      errorBody `json:"error"`
	AutoRemove bool      `json:"autoRemove,omitempty"`
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the error envelope. Foreign errors become INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		err = apperrors.BadRequest(validationMessage(verrs))
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("Internal server error", err)
	}

	// Never leak wrapped driver errors to clients.
	WriteJSON(w, appErr.Status, errorResponse{
		Success:    false,
		Error:      errorBody{Kind: appErr.Kind, Code: appErr.Code, Message: appErr.Message},
		AutoRemove: appErr.AutoRemove,
	})
}

// DecodeJSON reads a JSON body into dst and validates it
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("Invalid request body")
	}
	return Validate(dst)
}
