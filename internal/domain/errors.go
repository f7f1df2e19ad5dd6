package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInvoice   = errors.New("invalid invoice")
	ErrInvalidUser      = errors.New("invalid user id")
	ErrDuplicateInvoice = errors.New("duplicate invoice number")
	ErrIRNRejected      = errors.New("irn submission rejected")
)
