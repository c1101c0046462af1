// Package optins contiene el controller del Opt-in Registry.
package optins

import (
	"net/http"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/http/errors"
	"github.com/dropDatabas3/hellopair/internal/http/helpers"
	svc "github.com/dropDatabas3/hellopair/internal/http/services/optins"
)

// OptInRequest es el body de PUT .../optins/{participant}.
type OptInRequest struct {
	Annotation string `json:"annotation"`
}

// ListResponse es el body de GET .../optins.
type ListResponse struct {
	Tenant       pairing.TenantID        `json:"tenant"`
	Participants []pairing.ParticipantID `json:"participants"`
	Count        int                     `json:"count"`
}

// OptInsController maneja las rutas de opt-in.
type OptInsController struct {
	service svc.Service
}

func NewOptInsController(service svc.Service) *OptInsController {
	return &OptInsController{service: service}
}

// Put maneja PUT /v1/tenants/{tenant}/optins/{participant}
// 201 si el participante no estaba inscripto, 200 si ya lo estaba.
func (c *OptInsController) Put(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	var req OptInRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}

	rec, created, err := c.service.OptIn(r.Context(), tenant, p, req.Annotation)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	helpers.WriteJSON(w, status, rec)
}

// Delete maneja DELETE /v1/tenants/{tenant}/optins/{participant}
func (c *OptInsController) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if err := c.service.OptOut(r.Context(), tenant, p); err != nil {
		errors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get maneja GET /v1/tenants/{tenant}/optins/{participant}
func (c *OptInsController) Get(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	rec, err := c.service.Get(r.Context(), tenant, p)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rec)
}

// List maneja GET /v1/tenants/{tenant}/optins
func (c *OptInsController) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := helpers.Tenant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	ps, err := c.service.List(r.Context(), tenant)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if ps == nil {
		ps = []pairing.ParticipantID{}
	}
	helpers.WriteJSON(w, http.StatusOK, ListResponse{Tenant: tenant, Participants: ps, Count: len(ps)})
}
