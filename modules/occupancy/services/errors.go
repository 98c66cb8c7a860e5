package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
)

const (
	CodeInvalidBody                = "OCC_INVALID_BODY"
	CodeInvalidRange               = "OCC_INVALID_RANGE"
	CodeNotFound                   = "OCC_NOT_FOUND"
	CodePersonNotFound             = "OCC_PERSON_NOT_FOUND"
	CodeOrganizationNotFound       = "OCC_ORGANIZATION_NOT_FOUND"
	CodeDecreeNotFound             = "OCC_DECREE_NOT_FOUND"
	CodePositionNotFound           = "OCC_POSITION_NOT_FOUND"
	CodeOccupancyNotFound          = "OCC_OCCUPANCY_NOT_FOUND"
	CodeApprovalNotFound           = "OCC_APPROVAL_NOT_FOUND"
	CodePositionInactive           = "OCC_POSITION_INACTIVE"
	CodeOverlap                    = "OCC_OVERLAP"
	CodeTermLimit                  = "OCC_TERM_LIMIT"
	CodeSubstituteStartRequired    = "OCC_SUBSTITUTE_START_REQUIRED"
	CodePrincipalNotOccupied       = "OCC_PRINCIPAL_NOT_OCCUPIED"
	CodeChainCycle                 = "OCC_CHAIN_CYCLE"
	CodeSubstituteTaken            = "OCC_SUBSTITUTE_TAKEN"
	CodePrincipalNotFound          = "OCC_PRINCIPAL_NOT_FOUND"
	CodePrincipalOtherOrganization = "OCC_PRINCIPAL_OTHER_ORGANIZATION"
	CodeSubstituteNotExclusive     = "OCC_SUBSTITUTE_NOT_EXCLUSIVE"
	CodeChainOrganizationMismatch  = "OCC_CHAIN_ORGANIZATION_MISMATCH"
	CodeDuplicateName              = "OCC_DUPLICATE_NAME"
	CodePositionHasOccupancies     = "OCC_POSITION_HAS_OCCUPANCIES"
	CodeAlreadyInactive            = "OCC_ALREADY_INACTIVE"
	CodeAlreadyActive              = "OCC_ALREADY_ACTIVE"
	CodeNoSubstitute               = "OCC_NO_SUBSTITUTE"
	CodeNothingToPromote           = "OCC_NOTHING_TO_PROMOTE"
	CodeApprovalAlreadyDecided     = "OCC_APPROVAL_ALREADY_DECIDED"
	CodeInUse                      = "OCC_IN_USE"
	CodeBatchTooLarge              = "OCC_BATCH_TOO_LARGE"
	CodeConflict                   = "OCC_CONFLICT"
	CodeForeignKey                 = "OCC_REFERENCE_NOT_FOUND"
	CodeInternal                   = "OCC_INTERNAL"
)

// ServiceError is the error type returned by every OccupancyService operation
// that fails for a reason the caller can act on.
type ServiceError struct {
	Status  int
	Code    string
	Message string

	// Rule and ConflictingID are set for admission rule violations.
	Rule          occupancy.Rule
	ConflictingID *int64

	// PendingApprovalID is set when the mutation was deferred for approval.
	PendingApprovalID *int64

	Cause error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func badRequest(code, format string, args ...any) *ServiceError {
	return newServiceError(http.StatusBadRequest, code, fmt.Sprintf(format, args...), nil)
}

func ruleViolation(rule occupancy.Rule, code string, conflictingID *int64, message string) *ServiceError {
	e := newServiceError(http.StatusBadRequest, code, message, nil)
	e.Rule = rule
	e.ConflictingID = conflictingID
	return e
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// notFoundOr maps a missing row to a 404 with code and passes other errors
// through the store error mapping.
func notFoundOr(err error, code, what string, id int64) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return newServiceError(http.StatusNotFound, code, fmt.Sprintf("%s %d not found", what, id), err)
	}
	return mapStoreError(err)
}

// mapStoreError leaves ServiceErrors untouched and translates store errors.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return mapPgErrorToServiceError(err)
}
