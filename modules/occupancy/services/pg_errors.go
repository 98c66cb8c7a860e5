package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

func mapPgErrorToServiceError(err error) error {
	if err == nil {
		return nil
	}

	if isNotFound(err) {
		return newServiceError(http.StatusNotFound, CodeNotFound, "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		switch pgErr.ConstraintName {
		case "positions_organization_id_name_key":
			return newServiceError(http.StatusConflict, CodeDuplicateName, "position name already exists in organization", err)
		case "positions_substitute_key":
			return newServiceError(http.StatusBadRequest, CodeSubstituteTaken, "principal already has a substitute", err)
		default:
			return newServiceError(http.StatusConflict, CodeConflict, "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return newServiceError(http.StatusUnprocessableEntity, CodeForeignKey, "referenced record not found", err)
	case "23514": // check_violation
		recordWriteConflict("check")
		if pgErr.ConstraintName == "occupancies_valid_range" {
			return newServiceError(http.StatusBadRequest, CodeInvalidRange, "start date is after end date", err)
		}
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, "check constraint violated", err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		recordWriteConflict("serialization")
		return newServiceError(http.StatusConflict, CodeConflict, "concurrent update, retry the request", err)
	default:
		return newServiceError(http.StatusInternalServerError, CodeInternal, fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
