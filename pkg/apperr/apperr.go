package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an AppError for the boundary layer.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindRateLimited   Kind = "RATE_LIMITED"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindAuthorization Kind = "AUTHORIZATION"
	KindDisabled      Kind = "FEATURE_DISABLED"
	KindPersistence   Kind = "PERSISTENCE"
)

type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
	// Meta carries machine-readable details (remaining seconds, limits).
	Meta map[string]any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// With attaches a detail key to the error and returns it.
func (e *AppError) With(key string, value any) *AppError {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

func New(kind Kind, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *AppError {
	return New(KindValidation, code, message, nil)
}

func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message, nil)
}

func Conflict(code, message string) *AppError {
	return New(KindConflict, code, message, nil)
}

func Forbidden(code, message string) *AppError {
	return New(KindAuthorization, code, message, nil)
}

func Disabled(code, message string) *AppError {
	return New(KindDisabled, code, message, nil)
}

// RateLimited builds a throttling error; callers attach the remaining
// count or seconds with With.
func RateLimited(code, message string) *AppError {
	return New(KindRateLimited, code, message, nil)
}

// Persistence wraps a durable-store failure. The cause stays reachable
// through errors.Is / errors.As. An AppError passes through untouched.
func Persistence(code string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	return New(KindPersistence, code, "storage failure", err)
}

// As extracts the AppError in err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindPersistence for foreign errors.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeDailyLimit        = "DAILY_LIMIT_REACHED"
	CodeCooldown          = "COOLDOWN_ACTIVE"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodePinNotFound       = "PIN_NOT_FOUND"
	CodeActionNotFound    = "ACTION_NOT_FOUND"
	CodeRequestNotFound   = "VERIFICATION_NOT_FOUND"
	CodeTxNotFound        = "TRANSACTION_NOT_FOUND"
	CodeCategoryNotFound  = "CATEGORY_NOT_FOUND"
	CodeCityNotFound      = "CITY_NOT_FOUND"
	CodeAlreadyLiked      = "ALREADY_LIKED"
	CodeNotLiked          = "NOT_LIKED"
	CodeAlreadyProcessed  = "ALREADY_PROCESSED"
	CodeAlreadyReversed   = "ALREADY_REVERSED"
	CodeSelfTarget        = "SELF_TARGET"
	CodeAdminRequired     = "ADMIN_REQUIRED"
	CodeAccountSuspended  = "ACCOUNT_SUSPENDED"
	CodeFeatureDisabled   = "FEATURE_DISABLED"
	CodeUnknownSetting    = "UNKNOWN_SETTING"
	CodeStorage           = "STORAGE_ERROR"
	CodeStorageTimeout    = "STORAGE_TIMEOUT"
	CodeChainBroken       = "LEDGER_CHAIN_BROKEN"
	CodeVerificationState = "VERIFICATION_STATE"
)
