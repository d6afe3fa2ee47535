package errors

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrUninitializedCycle  = errors.New("no due date established")
	ErrInvalidDateOrdering = errors.New("invalid date ordering")
	ErrObligationNotFound  = errors.New("obligation not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrObligationInactive  = errors.New("obligation is inactive")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrConcurrentUpdate    = errors.New("obligation was modified concurrently")
	ErrInvalidDateRange    = errors.New("invalid date range")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidFrequency    = "INVALID_FREQUENCY"
	ErrCodeUninitializedCycle  = "UNINITIALIZED_CYCLE"
	ErrCodeInvalidDateOrdering = "INVALID_DATE_ORDERING"
	ErrCodeObligationNotFound  = "OBLIGATION_NOT_FOUND"
	ErrCodeMemberNotFound      = "MEMBER_NOT_FOUND"
	ErrCodeObligationInactive  = "OBLIGATION_INACTIVE"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeConcurrentUpdate    = "CONCURRENT_UPDATE"
	ErrCodeInvalidDateRange    = "INVALID_DATE_RANGE"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeCacheError          = "CACHE_ERROR"
)

const dateLayout = "2006-01-02"

// Wrap common errors with business context
func WrapInvalidFrequency(token string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidFrequency,
		fmt.Sprintf("Unrecognized frequency %q", token),
		ErrInvalidFrequency,
	)
}

func WrapUninitializedCycle(obligationID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeUninitializedCycle,
		fmt.Sprintf("Obligation %d has no due date established; run a repair sweep or reschedule it first", obligationID),
		ErrUninitializedCycle,
	)
}

func WrapFuturePayment(paymentDate, today time.Time) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDateOrdering,
		fmt.Sprintf("Payment date %s is after today (%s)", paymentDate.Format(dateLayout), today.Format(dateLayout)),
		ErrInvalidDateOrdering,
	)
}

func WrapObligationNotFound(obligationID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeObligationNotFound,
		fmt.Sprintf("Obligation with ID %d not found", obligationID),
		ErrObligationNotFound,
	)
}

func WrapMemberNotFound(memberID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberNotFound,
		fmt.Sprintf("Member with ID %d not found", memberID),
		ErrMemberNotFound,
	)
}

func WrapObligationInactive(obligationID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeObligationInactive,
		fmt.Sprintf("Obligation with ID %d is inactive", obligationID),
		ErrObligationInactive,
	)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapConcurrentUpdate(obligationID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Obligation with ID %d was modified by another request", obligationID),
		ErrConcurrentUpdate,
	)
}

func WrapInvalidDateRange(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidDateRange,
		reason,
		ErrInvalidDateRange,
	)
}

// WrapDatabaseError wraps storage failures. Errors that already carry a
// business code are returned as they are.
func WrapDatabaseError(err error) *BusinessError {
	var be *BusinessError
	if errors.As(err, &be) {
		return be
	}
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
