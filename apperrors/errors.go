// Package apperrors defines the error taxonomy shared by services and controllers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse error category surfaced to clients
type Kind string

const (
	KindNotFound             Kind = "NotFound"
	KindValidation           Kind = "ValidationError"
	KindConflict             Kind = "Conflict"
	KindState                Kind = "StateError"
	KindInsufficientResource Kind = "InsufficientResource"
	KindExternalDependency   Kind = "ExternalDependencyFailure"
	KindInternal             Kind = "InternalError"
	KindUnauthorized         Kind = "Unauthorized"
	KindForbidden            Kind = "Forbidden"
)

// Machine-readable codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeMissingCart        = "MISSING_CART"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeOrderNotFound      = "ORDER_NOT_FOUND"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeCommentRequired    = "COMMENT_REQUIRED"
	CodeStatusConflict     = "STATUS_CONFLICT"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenAlreadyUsed   = "TOKEN_ALREADY_USED"
	CodeTokenNotOwned      = "TOKEN_NOT_OWNED"
	CodeDuplicateReview    = "DUPLICATE_REVIEW"
	CodeCouponNotFound     = "COUPON_NOT_FOUND"
	CodeCouponInactive     = "COUPON_INACTIVE"
	CodeCouponOutOfWindow  = "COUPON_OUT_OF_WINDOW"
	CodeCouponBelowMinimum = "COUPON_BELOW_MINIMUM"
	CodeDuplicateCoupon    = "DUPLICATE_COUPON"
	CodeDuplicateCategory  = "DUPLICATE_CATEGORY"
	CodeCategoryCycle      = "CATEGORY_CYCLE"
	CodeUploadFailed       = "UPLOAD_FAILED"
)

// AppError is an error with a kind, a machine code and an HTTP status
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	// AutoRemove tells the client to drop locally held state tied to the failed request (coupons).
	AutoRemove bool
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError
func New(kind Kind, code, message string, status int, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Status: status, Err: err}
}

func NotFound(code, message string, err error) *AppError {
	return New(KindNotFound, code, message, http.StatusNotFound, err)
}

func Validation(code, message string) *AppError {
	return New(KindValidation, code, message, http.StatusBadRequest, nil)
}

func BadRequest(message string) *AppError {
	return Validation(CodeValidation, message)
}

func Conflict(code, message string) *AppError {
	return New(KindConflict, code, message, http.StatusConflict, nil)
}

func State(code, message string) *AppError {
	return New(KindState, code, message, http.StatusBadRequest, nil)
}

func InsufficientStock(productName string) *AppError {
	return New(KindInsufficientResource, CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for: %s", productName), http.StatusBadRequest, nil)
}

func Internal(message string, err error) *AppError {
	return New(KindInternal, CodeInternal, message, http.StatusInternalServerError, err)
}

func External(code, message string, err error) *AppError {
	return New(KindExternalDependency, code, message, http.StatusBadGateway, err)
}

func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func Forbidden(code, message string) *AppError {
	return New(KindForbidden, code, message, http.StatusForbidden, nil)
}

// WithStatus returns a copy of e carrying a different HTTP status
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.Status = status
	return &cp
}

// WithAutoRemove returns a copy of e flagged with the autoRemove hint
func (e *AppError) WithAutoRemove() *AppError {
	cp := *e
	cp.AutoRemove = true
	return &cp
}

// As extracts an *AppError from err
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an AppError with the given code
func Is(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// KindOf returns the kind of err, InternalError for foreign errors
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
