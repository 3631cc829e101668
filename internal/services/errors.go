package services

import "errors"

// ErrInvalidInput wraps malformed caller input such as a bad date.
var ErrInvalidInput = errors.New("invalid input")
