package app

import (
	"errors"
	"fmt"
	"net/http"

	"visitledger/internal/ledger"
	"visitledger/internal/lock"
	"visitledger/internal/sheet"
	"visitledger/internal/store"
	"visitledger/internal/visit"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	// ErrTodayExists: rollover requested but today's primary ledger is
	// already in the store.
	ErrTodayExists = errors.New("ledger for today already exists")
	// ErrNoPriorLedger: rollover found nothing to clone from.
	ErrNoPriorLedger = errors.New("no previous ledger found to clone")
	// ErrStorageFailure wraps backing store failures other than a missing
	// object.
	ErrStorageFailure = errors.New("backing store failure")
)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, visit.ErrDuplicateEntry):
		return http.StatusBadRequest, "DUPLICATE_ENTRY", "Duplicate entry detected", nil
	case errors.Is(err, ledger.ErrDuplicateName):
		return http.StatusBadRequest, "DUPLICATE_NAME", "Executive already exists", nil
	case errors.Is(err, ledger.ErrEmptyName):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Name required", nil
	case errors.Is(err, ledger.ErrExecutiveNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Executive not found", nil
	case errors.Is(err, ErrTodayExists):
		return http.StatusConflict, "CONFLICT", "Ledger for today already exists", nil
	case errors.Is(err, ErrNoPriorLedger):
		return http.StatusNotFound, "NOT_FOUND", "No previous ledger found to clone", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "File not found", nil
	case errors.Is(err, sheet.ErrCorrupt):
		return http.StatusInternalServerError, "CORRUPT_LEDGER", "Ledger file is corrupt", nil
	case errors.Is(err, ErrStorageFailure):
		return http.StatusInternalServerError, "STORAGE_ERROR", "Backing store operation failed", nil
	case errors.Is(err, lock.ErrBusy):
		return http.StatusServiceUnavailable, "BUSY", "Ledger is busy, try again", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
