// Package profiles contiene el controller del Profile Store.
package profiles

import (
	"net/http"

	"github.com/dropDatabas3/hellopair/internal/http/errors"
	"github.com/dropDatabas3/hellopair/internal/http/helpers"
	svc "github.com/dropDatabas3/hellopair/internal/http/services/profiles"
)

// UpsertRequest es el body de PUT .../profiles/{participant}.
type UpsertRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// ProfilesController maneja las rutas de perfiles.
type ProfilesController struct {
	service svc.Service
}

func NewProfilesController(service svc.Service) *ProfilesController {
	return &ProfilesController{service: service}
}

// Put maneja PUT /v1/tenants/{tenant}/profiles/{participant}
func (c *ProfilesController) Put(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	var req UpsertRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		errors.WriteError(w, err)
		return
	}
	prof, err := c.service.Upsert(r.Context(), tenant, p, req.Attributes)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, prof)
}

// Get maneja GET /v1/tenants/{tenant}/profiles/{participant}
func (c *ProfilesController) Get(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	prof, err := c.service.Get(r.Context(), tenant, p)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, prof)
}

// Delete maneja DELETE /v1/tenants/{tenant}/profiles/{participant}
func (c *ProfilesController) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, p, err := helpers.TenantParticipant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if err := c.service.Delete(r.Context(), tenant, p); err != nil {
		errors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
