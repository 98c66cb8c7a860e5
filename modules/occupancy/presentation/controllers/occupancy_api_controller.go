package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/audit"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/application"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/composables"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/pkg/httpapi"
)

const (
	codeInvalidQuery     = "OCC_INVALID_QUERY"
	internalErrorMessage = "internal server error"
)

type OccupancyAPIController struct {
	occupancy *services.OccupancyService
	apiPrefix string
}

func NewOccupancyAPIController(app application.Application) application.Controller {
	return &OccupancyAPIController{
		occupancy: app.Service(services.OccupancyService{}).(*services.OccupancyService),
		apiPrefix: "/occupancy/api",
	}
}

func (c *OccupancyAPIController) Key() string {
	return c.apiPrefix
}

func (c *OccupancyAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/positions", c.ListPositions).Methods(http.MethodGet)
	api.HandleFunc("/positions", c.CreatePosition).Methods(http.MethodPost)
	api.HandleFunc("/positions:batch-create", c.CreatePositions).Methods(http.MethodPost)
	api.HandleFunc("/positions:batch-delete", c.DeletePositions).Methods(http.MethodPost)
	api.HandleFunc("/positions:batch-reactivate", c.ReactivatePositions).Methods(http.MethodPost)
	api.HandleFunc("/positions/{id:[0-9]+}", c.GetPosition).Methods(http.MethodGet)
	api.HandleFunc("/positions/{id:[0-9]+}", c.UpdatePosition).Methods(http.MethodPatch)
	api.HandleFunc("/positions/{id:[0-9]+}", c.DeletePosition).Methods(http.MethodDelete)
	api.HandleFunc("/positions/{id:[0-9]+}:reactivate", c.ReactivatePosition).Methods(http.MethodPost)
	api.HandleFunc("/positions/{id:[0-9]+}/occupancies", c.ListOccupancies).Methods(http.MethodGet)

	api.HandleFunc("/occupancies", c.CreateOccupancy).Methods(http.MethodPost)
	api.HandleFunc("/occupancies:batch-delete", c.DeleteOccupancies).Methods(http.MethodPost)
	api.HandleFunc("/occupancies/{id:[0-9]+}", c.GetOccupancy).Methods(http.MethodGet)
	api.HandleFunc("/occupancies/{id:[0-9]+}", c.UpdateOccupancy).Methods(http.MethodPut)
	api.HandleFunc("/occupancies/{id:[0-9]+}", c.DeleteOccupancy).Methods(http.MethodDelete)
	api.HandleFunc("/occupancies/{id:[0-9]+}:finalize", c.FinalizeOccupancy).Methods(http.MethodPost)

	api.HandleFunc("/eligibility", c.CheckEligibility).Methods(http.MethodPost)

	api.HandleFunc("/pending-approvals", c.ListPendingApprovals).Methods(http.MethodGet)
	api.HandleFunc("/pending-approvals/{id:[0-9]+}:approve", c.ApprovePending).Methods(http.MethodPost)
	api.HandleFunc("/pending-approvals/{id:[0-9]+}:reject", c.RejectPending).Methods(http.MethodPost)

	api.HandleFunc("/audit", c.ListAudit).Methods(http.MethodGet)

	c.registerRegistry(api)
}

type positionRequest struct {
	Name           string `json:"name"`
	OrganizationID int64  `json:"organization_id"`
	Exclusive      *bool  `json:"exclusive"`
	SubstitutesFor *int64 `json:"substitutes_for"`
}

func (req positionRequest) input() services.CreatePositionInput {
	return services.CreatePositionInput{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		Exclusive:      req.Exclusive,
		SubstitutesFor: req.SubstitutesFor,
	}
}

type idsRequest struct {
	IDs   []int64 `json:"ids"`
	Soft  bool    `json:"soft"`
	Force bool    `json:"force"`
}

type idsResponse struct {
	IDs []int64 `json:"ids"`
}

type batchResponse struct {
	Results []services.BatchItemResult `json:"results"`
}

func (c *OccupancyAPIController) ListPositions(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	orgID, err := parseOptionalID(r.URL.Query().Get("organization_id"))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "organization_id is invalid")
		return
	}
	items, err := c.occupancy.ListPositions(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (c *OccupancyAPIController) CreatePosition(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req positionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	p, err := c.occupancy.CreatePosition(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (c *OccupancyAPIController) CreatePositions(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req struct {
		Items []positionRequest `json:"items"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	batch := make([]services.CreatePositionInput, 0, len(req.Items))
	for _, item := range req.Items {
		batch = append(batch, item.input())
	}
	results, err := c.occupancy.CreatePositions(r.Context(), batch)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, batchResponse{Results: results})
}

func (c *OccupancyAPIController) GetPosition(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	p, err := c.occupancy.GetPosition(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (c *OccupancyAPIController) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	var req struct {
		Name           *string `json:"name"`
		OrganizationID *int64  `json:"organization_id"`
		SubstitutesFor *int64  `json:"substitutes_for"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	p, err := c.occupancy.UpdatePosition(r.Context(), id, services.UpdatePositionInput{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		SubstitutesFor: req.SubstitutesFor,
	})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (c *OccupancyAPIController) DeletePosition(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	soft, err := parseBoolQuery(r, "soft")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "soft is invalid")
		return
	}
	force, err := parseBoolQuery(r, "force")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "force is invalid")
		return
	}
	ids, err := c.occupancy.DeletePosition(r.Context(), id, soft, force)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, idsResponse{IDs: ids})
}

func (c *OccupancyAPIController) DeletePositions(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req idsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	results, err := c.occupancy.DeletePositions(r.Context(), req.IDs, req.Soft, req.Force)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, batchResponse{Results: results})
}

func (c *OccupancyAPIController) ReactivatePosition(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	ids, err := c.occupancy.ReactivatePosition(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, idsResponse{IDs: ids})
}

func (c *OccupancyAPIController) ReactivatePositions(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	results, err := c.occupancy.ReactivatePositions(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, batchResponse{Results: results})
}

func (c *OccupancyAPIController) ListOccupancies(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	items, err := c.occupancy.ListOccupancies(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

type occupancyRequest struct {
	PersonID   int64   `json:"person_id"`
	PositionID int64   `json:"position_id"`
	DecreeID   *int64  `json:"decree_id"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	Notes      string  `json:"notes"`
	Policy     string  `json:"policy"`
}

func (req occupancyRequest) input() (services.CreateOccupancyInput, error) {
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return services.CreateOccupancyInput{}, errors.New("start_date is invalid")
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return services.CreateOccupancyInput{}, errors.New("end_date is invalid")
	}
	return services.CreateOccupancyInput{
		PersonID:   req.PersonID,
		PositionID: req.PositionID,
		DecreeID:   req.DecreeID,
		StartDate:  start,
		EndDate:    end,
		Notes:      req.Notes,
		Policy:     services.ConflictPolicy(strings.ToLower(strings.TrimSpace(req.Policy))),
	}, nil
}

func (c *OccupancyAPIController) decodeOccupancy(w http.ResponseWriter, r *http.Request, requestID string) (services.CreateOccupancyInput, bool) {
	var req occupancyRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return services.CreateOccupancyInput{}, false
	}
	in, err := req.input()
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, err.Error())
		return services.CreateOccupancyInput{}, false
	}
	return in, true
}

func (c *OccupancyAPIController) CreateOccupancy(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	in, ok := c.decodeOccupancy(w, r, requestID)
	if !ok {
		return
	}
	o, err := c.occupancy.CreateOccupancy(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, o)
}

func (c *OccupancyAPIController) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	o, err := c.occupancy.GetOccupancy(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

func (c *OccupancyAPIController) UpdateOccupancy(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	in, ok := c.decodeOccupancy(w, r, requestID)
	if !ok {
		return
	}
	o, err := c.occupancy.UpdateOccupancy(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

func (c *OccupancyAPIController) DeleteOccupancy(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	ids, err := c.occupancy.DeleteOccupancy(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, idsResponse{IDs: ids})
}

func (c *OccupancyAPIController) DeleteOccupancies(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	ids, err := c.occupancy.DeleteOccupancies(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, idsResponse{IDs: ids})
}

func (c *OccupancyAPIController) FinalizeOccupancy(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	var req struct {
		Definitive      bool    `json:"definitive"`
		EndDate         string  `json:"end_date"`
		SuccessionStart *string `json:"succession_start"`
		SuccessionEnd   *string `json:"succession_end"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil || end.IsZero() {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "end_date is required")
		return
	}
	successionStart, err := parseOptionalDate(req.SuccessionStart)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "succession_start is invalid")
		return
	}
	successionEnd, err := parseOptionalDate(req.SuccessionEnd)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "succession_end is invalid")
		return
	}
	res, err := c.occupancy.FinalizeOccupancy(r.Context(), services.FinalizeInput{
		OccupancyID:     id,
		Definitive:      req.Definitive,
		EndDate:         end,
		SuccessionStart: successionStart,
		SuccessionEnd:   successionEnd,
	})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (c *OccupancyAPIController) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req struct {
		PersonID   int64   `json:"person_id"`
		PositionID int64   `json:"position_id"`
		StartDate  string  `json:"start_date"`
		EndDate    *string `json:"end_date"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil || start.IsZero() {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "start_date is required")
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "end_date is invalid")
		return
	}
	verdict, err := c.occupancy.CheckEligibility(r.Context(), services.EligibilityInput{
		PersonID:   req.PersonID,
		PositionID: req.PositionID,
		StartDate:  &start,
		EndDate:    end,
	})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, verdict)
}

func (c *OccupancyAPIController) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var status *pendingapproval.Status
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		s, err := pendingapproval.ParseStatus(v)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "status is invalid")
			return
		}
		status = &s
	}
	items, err := c.occupancy.ListPendingApprovals(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (c *OccupancyAPIController) ApprovePending(w http.ResponseWriter, r *http.Request) {
	c.decidePending(w, r, true)
}

func (c *OccupancyAPIController) RejectPending(w http.ResponseWriter, r *http.Request) {
	c.decidePending(w, r, false)
}

func (c *OccupancyAPIController) decidePending(w http.ResponseWriter, r *http.Request, approve bool) {
	requestID := requestIDFrom(r)
	id, ok := pathID(w, r, requestID)
	if !ok {
		return
	}
	res, err := c.occupancy.ApprovePending(r.Context(), id, approve)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (c *OccupancyAPIController) ListAudit(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	q := r.URL.Query()

	var query services.AuditQuery
	for _, v := range splitValues(q["operation"]) {
		op, err := audit.ParseOperation(v)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, err.Error())
			return
		}
		query.Operations = append(query.Operations, op)
	}
	for _, v := range splitValues(q["target"]) {
		target, err := audit.ParseTarget(v)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, err.Error())
			return
		}
		query.Targets = append(query.Targets, target)
	}
	var err error
	if query.Limit, err = parseIntQuery(q.Get("limit")); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "limit is invalid")
		return
	}
	if query.Offset, err = parseIntQuery(q.Get("offset")); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "offset is invalid")
		return
	}

	page, err := c.occupancy.ListAudit(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func requestIDFrom(r *http.Request) string {
	if v := composables.UseRequestID(r.Context()); v != "" {
		return v
	}
	return uuid.NewString()
}

func pathID(w http.ResponseWriter, r *http.Request, requestID string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, http.StatusBadRequest, requestID, codeInvalidQuery, "invalid id")
		return 0, false
	}
	return id, true
}

func parseOptionalID(v string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid id")
	}
	return &id, nil
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func parseIntQuery(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// splitValues flattens repeated and comma separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseOptionalDate(v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseDate(*v)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func requestLogger(r *http.Request) *logrus.Entry {
	if l := composables.UseLogger(r.Context()); l != nil {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// writeServiceError renders err as an error envelope. Causes of server errors
// are logged and never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		requestLogger(r).WithError(err).WithField("request_id", requestID).Error("occupancy.api.internal_error")
		writeAPIError(w, http.StatusInternalServerError, requestID, services.CodeInternal, internalErrorMessage)
		return
	}
	if svcErr.Status >= http.StatusInternalServerError {
		requestLogger(r).WithError(err).WithField("request_id", requestID).Error("occupancy.api.internal_error")
	}
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	if svcErr.Rule != 0 {
		meta["rule"] = strconv.Itoa(int(svcErr.Rule))
	}
	if svcErr.ConflictingID != nil {
		meta["conflicting_id"] = strconv.FormatInt(*svcErr.ConflictingID, 10)
	}
	if svcErr.PendingApprovalID != nil {
		meta["pending_approval_id"] = strconv.FormatInt(*svcErr.PendingApprovalID, 10)
	}
	_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeJSON[T any](w http.ResponseWriter, r *http.Request, status int, payload T) {
	err := httpapi.WriteJSON(w, status, payload)
	if err == nil {
		return
	}
	requestID := requestIDFrom(r)
	requestLogger(r).WithError(err).WithField("request_id", requestID).Error("occupancy.api.write_failed")
	if errors.Is(err, httpapi.ErrEncode) {
		writeAPIError(w, http.StatusInternalServerError, requestID, services.CodeInternal, internalErrorMessage)
	}
}
