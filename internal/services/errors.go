package services

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrNotEditable          = errors.New("invoice is no longer a draft")
	ErrEmptyInvoice         = errors.New("document has no items")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotCreditable        = errors.New("invoice cannot be credited")
	ErrCreditExceedsInvoice = errors.New("credit note exceeds the amount left on the invoice")
	ErrClientInUse          = errors.New("client still has invoices")
)
