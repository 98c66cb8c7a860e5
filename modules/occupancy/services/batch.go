package services

import (
	"errors"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/position"
)

type BatchStatus string

const (
	BatchSuccess         BatchStatus = "success"
	BatchNotFound        BatchStatus = "not_found"
	BatchAlreadyInactive BatchStatus = "already_inactive"
	BatchAlreadyActive   BatchStatus = "already_active"
	BatchError           BatchStatus = "error"
)

// BatchItemResult is the outcome of one item of a partially committed batch.
type BatchItemResult struct {
	Index    int                `json:"index"`
	Status   BatchStatus        `json:"status"`
	IDs      []int64            `json:"ids,omitempty"`
	Position *position.Position `json:"position,omitempty"`
	Code     string             `json:"code,omitempty"`
	Message  string             `json:"message,omitempty"`
}

func batchFailure(index int, err error, ids ...int64) BatchItemResult {
	res := BatchItemResult{Index: index, Status: BatchError, IDs: ids, Message: err.Error()}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		res.Code = CodeInternal
		return res
	}
	res.Code = svcErr.Code
	res.Message = svcErr.Message
	switch svcErr.Code {
	case CodePositionNotFound:
		res.Status = BatchNotFound
	case CodeAlreadyInactive:
		res.Status = BatchAlreadyInactive
	case CodeAlreadyActive:
		res.Status = BatchAlreadyActive
	}
	return res
}
