package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/registry"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

var registryPaths = map[string]registry.Kind{
	"/persons":       registry.KindPerson,
	"/organizations": registry.KindOrganization,
	"/decrees":       registry.KindDecree,
}

func (c *OccupancyAPIController) registerRegistry(api *mux.Router) {
	api.HandleFunc("/persons", c.ListPersons).Methods(http.MethodGet)
	api.HandleFunc("/persons", c.CreatePerson).Methods(http.MethodPost)
	api.HandleFunc("/organizations", c.ListOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/organizations", c.CreateOrganization).Methods(http.MethodPost)
	api.HandleFunc("/decrees", c.ListDecrees).Methods(http.MethodGet)
	api.HandleFunc("/decrees", c.CreateDecree).Methods(http.MethodPost)

	for path, kind := range registryPaths {
		api.HandleFunc(path+"/{id:[0-9]+}", c.removeRegistryEntry(kind)).Methods(http.MethodDelete)
		api.HandleFunc(path+"/{id:[0-9]+}:reactivate", c.reactivateRegistryEntry(kind)).Methods(http.MethodPost)
	}
}

type namedRequest struct {
	Name string `json:"name"`
}

func (c *OccupancyAPIController) ListPersons(w http.ResponseWriter, r *http.Request) {
	items, err := c.occupancy.ListPersons(r.Context())
	if err != nil {
		writeServiceError(w, r, requestIDFrom(r), err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (c *OccupancyAPIController) CreatePerson(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req namedRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	p, err := c.occupancy.CreatePerson(r.Context(), services.CreateNamedInput{Name: req.Name})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (c *OccupancyAPIController) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	items, err := c.occupancy.ListOrganizations(r.Context())
	if err != nil {
		writeServiceError(w, r, requestIDFrom(r), err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (c *OccupancyAPIController) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req namedRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	o, err := c.occupancy.CreateOrganization(r.Context(), services.CreateNamedInput{Name: req.Name})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, o)
}

func (c *OccupancyAPIController) ListDecrees(w http.ResponseWriter, r *http.Request) {
	items, err := c.occupancy.ListDecrees(r.Context())
	if err != nil {
		writeServiceError(w, r, requestIDFrom(r), err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (c *OccupancyAPIController) CreateDecree(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	var req struct {
		Number   string  `json:"number"`
		IssuedOn *string `json:"issued_on"`
		Notes    string  `json:"notes"`
	}
	if err := decodeJSON(r.Body, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "invalid json body")
		return
	}
	issuedOn, err := parseOptionalDate(req.IssuedOn)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, services.CodeInvalidBody, "issued_on is invalid")
		return
	}
	d, err := c.occupancy.CreateDecree(r.Context(), services.CreateDecreeInput{
		Number:   req.Number,
		IssuedOn: issuedOn,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, d)
}

func (c *OccupancyAPIController) removeRegistryEntry(kind registry.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		if err := c.occupancy.RemoveRegistryEntry(r.Context(), kind, id, soft); err != nil {
			writeServiceError(w, r, requestID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *OccupancyAPIController) reactivateRegistryEntry(kind registry.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)
		id, ok := pathID(w, r, requestID)
		if !ok {
			return
		}
		if err := c.occupancy.ReactivateRegistryEntry(r.Context(), kind, id); err != nil {
			writeServiceError(w, r, requestID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
