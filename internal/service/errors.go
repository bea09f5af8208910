package service

import "errors"

// ErrInvalidInput marks a request rejected by service-level validation.
// Transport adapters map it to a 400-class response.
var ErrInvalidInput = errors.New("invalid input")
