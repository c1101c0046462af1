// Package helpers contiene utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/http/errors"
)

const maxBody = 1 << 20

// ReadJSON decodifica JSON de forma tolerante (no falla por campos
// desconocidos) y limita el body a 1MB. Un body vacío no es error.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength != 0 {
		ct := strings.ToLower(r.Header.Get("Content-Type"))
		if ct != "" && !strings.Contains(ct, "application/json") {
			return errors.ErrInvalidJSON.WithDetail("Content-Type must be application/json")
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.ErrBodyTooLarge
		}
		return errors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Tenant retorna el tenant del path ({tenant}).
func Tenant(r *http.Request) (pairing.TenantID, error) {
	t := strings.TrimSpace(chi.URLParam(r, "tenant"))
	if t == "" {
		return "", errors.ErrInvalidParameter.WithDetail("tenant is required")
	}
	return pairing.TenantID(t), nil
}

// TenantParticipant retorna {tenant} y {participant} del path.
func TenantParticipant(r *http.Request) (pairing.TenantID, pairing.ParticipantID, error) {
	t, err := Tenant(r)
	if err != nil {
		return "", "", err
	}
	p := strings.TrimSpace(chi.URLParam(r, "participant"))
	if p == "" {
		return "", "", errors.ErrInvalidParameter.WithDetail("participant is required")
	}
	return t, pairing.ParticipantID(p), nil
}
