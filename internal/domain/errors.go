package domain

import "errors"

// Error kinds. Callers match with errors.Is; entity-specific errors below
// satisfy errors.Is against their kind.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrOwnerWrongRole         = errors.New("owner must have role Owner")
	ErrApartmentNotAvailable  = errors.New("apartment is not available")
	ErrDateInPast             = errors.New("date is in the past")
	ErrConcurrentModification = errors.New("record was modified or removed since it was loaded")
	ErrUnauthorized           = errors.New("unauthorized")

	ErrOwnerProtected     = errors.New("owner accounts cannot be managed through the admin surface")
	ErrUserInUse          = errors.New("user still participates in appointments or messages")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	ErrUserNotFound        = &kindError{msg: "user not found", kind: ErrNotFound}
	ErrOwnerNotFound       = &kindError{msg: "owner not found", kind: ErrNotFound}
	ErrTenantNotFound      = &kindError{msg: "tenant not found", kind: ErrNotFound}
	ErrManagerNotFound     = &kindError{msg: "manager not found", kind: ErrNotFound}
	ErrSenderNotFound      = &kindError{msg: "sender not found", kind: ErrNotFound}
	ErrReceiverNotFound    = &kindError{msg: "receiver not found", kind: ErrNotFound}
	ErrPropertyNotFound    = &kindError{msg: "property not found", kind: ErrNotFound}
	ErrApartmentNotFound   = &kindError{msg: "apartment not found", kind: ErrNotFound}
	ErrAppointmentNotFound = &kindError{msg: "appointment not found", kind: ErrNotFound}
	ErrMessageNotFound     = &kindError{msg: "message not found", kind: ErrNotFound}

	ErrEmptyContent        = &kindError{msg: "message content is empty", kind: ErrValidation}
	ErrDuplicateUnitNumber = &kindError{msg: "unit number already exists in this property", kind: ErrValidation}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }
