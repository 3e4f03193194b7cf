package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. It is raised before
// any mutation is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a request field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BusinessLogicError reports a rule violation. Its message is safe to show
// to players verbatim.
type BusinessLogicError struct {
	Code    string
	Message string
}

func (e *BusinessLogicError) Error() string {
	return e.Message
}

// Is matches on Code so sentinel comparisons survive custom messages
func (e *BusinessLogicError) Is(target error) bool {
	t, ok := target.(*BusinessLogicError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewBusinessLogicError creates a rule violation error with a custom message
func NewBusinessLogicError(code, message string) error {
	return &BusinessLogicError{Code: code, Message: message}
}

// WithMessage returns a copy of a sentinel carrying a more specific message
func (e *BusinessLogicError) WithMessage(format string, args ...any) error {
	return &BusinessLogicError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Business rule sentinels, compared with errors.Is
var (
	ErrInsufficientBalance    = &BusinessLogicError{Code: "insufficient_balance", Message: "insufficient balance"}
	ErrWindowAlreadyOpen      = &BusinessLogicError{Code: "window_already_open", Message: "a wagering window is already open"}
	ErrWindowNotOpen          = &BusinessLogicError{Code: "window_not_open", Message: "the wagering window is not open"}
	ErrMinimumWager           = &BusinessLogicError{Code: "minimum_wager", Message: "wager is below the minimum"}
	ErrDuplicateBlessing      = &BusinessLogicError{Code: "duplicate_blessing", Message: "you already placed a blessing in this window"}
	ErrUnregisteredPrediction = &BusinessLogicError{Code: "unregistered_prediction", Message: "prediction is not a registered participant"}
	ErrDuplicateChallenge     = &BusinessLogicError{Code: "duplicate_challenge", Message: "you already issued a challenge in this window"}
	ErrRankRestriction        = &BusinessLogicError{Code: "rank_restriction", Message: "you can only challenge players ranked above you"}
	ErrChallengeNotPending    = &BusinessLogicError{Code: "challenge_not_pending", Message: "challenge is not awaiting a response"}
	ErrNotChallengedPlayer    = &BusinessLogicError{Code: "not_challenged_player", Message: "only the challenged player can respond"}
	ErrAdvantageAlreadyOwned  = &BusinessLogicError{Code: "advantage_already_owned", Message: "you already hold an unused advantage of this type"}
	ErrNoUsableAdvantage      = &BusinessLogicError{Code: "no_usable_advantage", Message: "no unused, unexpired advantage of this type"}
	ErrPlayerInactive         = &BusinessLogicError{Code: "player_inactive", Message: "player is deactivated"}
	ErrPlayerAlreadyExists    = &BusinessLogicError{Code: "player_exists", Message: "player already exists"}
)

// WindowAlreadyOpenError is returned by openWindow when the single open slot
// is taken. It unwraps to ErrWindowAlreadyOpen.
type WindowAlreadyOpenError struct {
	WindowID         int64
	SecondsRemaining int64
}

func (e *WindowAlreadyOpenError) Error() string {
	return fmt.Sprintf("a wagering window is already open (%d seconds remaining)", e.SecondsRemaining)
}

func (e *WindowAlreadyOpenError) Unwrap() error {
	return ErrWindowAlreadyOpen
}

// NotFoundError reports an unknown entity
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// NewNotFoundError creates a not found error for a resource
func NewNotFoundError(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// StorageError wraps a backing-store failure. Its detail is never shown to players.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsBusinessLogic reports whether err is a BusinessLogicError
func IsBusinessLogic(err error) bool {
	var target *BusinessLogicError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
