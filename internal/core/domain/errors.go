package domain

import "errors"

// ErrNotFound is returned when a zone or log does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input violates geometry or naming rules.
var ErrValidation = errors.New("validation error")
