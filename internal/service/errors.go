package service

import (
	"errors"
	"fmt"
)

// ValidationError marks input-validation failures (malformed structures,
// missing references, bad budgets). The API layer maps these to 4xx; every
// other error class stays inside result payloads or maps to 5xx.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
