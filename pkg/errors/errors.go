package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized access")

	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountInactive      = errors.New("account is inactive")

	ErrInvalidInput = errors.New("invalid input data")
	ErrWeakPassword = errors.New("password does not meet requirements")

	ErrPinNotSet   = errors.New("transaction PIN has not been set")
	ErrPinMismatch = errors.New("incorrect PIN")
	ErrPinLocked   = errors.New("too many failed PIN attempts, try again later")

	ErrOTPMismatch = errors.New("incorrect or expired confirmation code")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
