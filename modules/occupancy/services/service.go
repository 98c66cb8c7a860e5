package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/eventbus"
)

// ConflictPolicy decides what happens when an admission breaks the overlap
// or term-limit rule.
type ConflictPolicy string

const (
	// PolicyReject fails the mutation with nothing written.
	PolicyReject ConflictPolicy = "reject"
	// PolicyDefer rolls the mutation back and records a PendingApproval.
	PolicyDefer ConflictPolicy = "defer"
)

func ParseConflictPolicy(v string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyDefer:
		return PolicyDefer, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", v)
	}
}

const defaultMaxBatchSize = 500

type OccupancyService struct {
	repo       Repository
	policy     ConflictPolicy
	maxBatch   int
	auditLimit int
	auditMax   int
	validate   *validator.Validate
	now        func() time.Time
	events     eventbus.EventBus
}

type Option func(*OccupancyService)

// WithConflictPolicy sets the policy used when a request does not name one.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(s *OccupancyService) {
		if p != "" {
			s.policy = p
		}
	}
}

func WithMaxBatchSize(n int) Option {
	return func(s *OccupancyService) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithAuditPaging sets the default and the maximum audit page size.
func WithAuditPaging(limit, maxLimit int) Option {
	return func(s *OccupancyService) {
		if maxLimit > 0 {
			s.auditMax = maxLimit
		}
		if limit > 0 && limit <= s.auditMax {
			s.auditLimit = limit
		}
	}
}

// WithEventBus publishes every committed audit entry as an audit.Entry event.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *OccupancyService) {
		s.events = bus
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *OccupancyService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewOccupancyService(repo Repository, opts ...Option) *OccupancyService {
	s := &OccupancyService{
		repo:       repo,
		policy:     PolicyReject,
		maxBatch:   defaultMaxBatchSize,
		auditLimit: DefaultAuditLimit,
		auditMax:   MaxAuditLimit,
		validate:   newValidator(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OccupancyService) Policy() ConflictPolicy { return s.policy }

func (s *OccupancyService) policyFor(requested ConflictPolicy) ConflictPolicy {
	if requested == "" {
		return s.policy
	}
	return requested
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *OccupancyService) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newServiceError(http.StatusBadRequest, CodeInvalidBody, "invalid input", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return newServiceError(http.StatusBadRequest, CodeInvalidBody, "invalid input: "+strings.Join(fields, ", "), err)
}

func (s *OccupancyService) checkBatch(n int) error {
	if n == 0 {
		return badRequest(CodeInvalidBody, "batch is empty")
	}
	if n > s.maxBatch {
		return badRequest(CodeBatchTooLarge, "batch of %d items exceeds the limit of %d", n, s.maxBatch)
	}
	return nil
}

func inTx[T any](ctx context.Context, tm TxManager, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := tm.WithinTx(ctx, func(txCtx context.Context) error {
		v, err := fn(txCtx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, mapStoreError(err)
	}
	return out, nil
}
