package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logger := composables.UseLogger(ctx)
	if logger == nil {
		return
	}
	if requestID := composables.UseRequestID(ctx); requestID != "" {
		if _, ok := fields["request_id"]; !ok {
			fields["request_id"] = requestID
		}
	}
	logger.WithFields(fields).Log(level, msg)
}

// logRejected logs a ServiceError rejection at warn level. Other errors are
// logged at error level.
func logRejected(ctx context.Context, msg string, err error, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		fields["error"] = err.Error()
		logWithFields(ctx, logrus.ErrorLevel, msg, fields)
		return
	}
	fields["error_code"] = svcErr.Code
	fields["status"] = svcErr.Status
	if svcErr.Rule != 0 {
		fields["rule"] = svcErr.Rule.String()
	}
	if svcErr.ConflictingID != nil {
		fields["conflicting_id"] = *svcErr.ConflictingID
	}
	if svcErr.PendingApprovalID != nil {
		fields["pending_approval_id"] = *svcErr.PendingApprovalID
	}
	logWithFields(ctx, logrus.WarnLevel, msg, fields)
}
