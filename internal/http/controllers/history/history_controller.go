// Package history contiene el controller de lectura del Pairing History Store.
package history

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/http/errors"
	"github.com/dropDatabas3/hellopair/internal/http/helpers"
)

// Response es el body de GET .../history.
type Response struct {
	Tenant      pairing.TenantID      `json:"tenant"`
	Participant pairing.ParticipantID `json:"participant,omitempty"`
	Edges       []pairing.Edge        `json:"edges"`
	Count       int                   `json:"count"`
}

// HistoryController maneja GET /v1/tenants/{tenant}/history.
type HistoryController struct {
	history pairing.HistoryRepository
}

func NewHistoryController(history pairing.HistoryRepository) *HistoryController {
	return &HistoryController{history: history}
}

// List maneja GET /v1/tenants/{tenant}/history?participant=
func (c *HistoryController) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := helpers.Tenant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	p := pairing.ParticipantID(strings.TrimSpace(r.URL.Query().Get("participant")))

	edges, err := c.history.ListEdges(r.Context(), tenant, p)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if edges == nil {
		edges = []pairing.Edge{}
	}
	helpers.WriteJSON(w, http.StatusOK, Response{Tenant: tenant, Participant: p, Edges: edges, Count: len(edges)})
}
