package models

import "errors"

// Core error kinds. All are recoverable by the user.
var (
	ErrQuotaExceeded       = errors.New("signal quota exceeded")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyJudged       = errors.New("signal already judged")
	ErrWrongPassword       = errors.New("wrong password")
	ErrInvalidTimeframe    = errors.New("invalid timeframe")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
