package market

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("offer not found")
	ErrForbidden    = errors.New("not the seller")
)
