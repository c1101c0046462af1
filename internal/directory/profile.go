package directory

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// Profile resuelve el nombre desde el atributo full_name del perfil.
type Profile struct {
	repo pairing.ProfileRepository
}

func NewProfile(repo pairing.ProfileRepository) *Profile {
	return &Profile{repo: repo}
}

func (d *Profile) Resolve(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (pairing.Identity, error) {
	prof, err := d.repo.Get(ctx, tenant, p)
	if err != nil {
		if pairing.IsNotFound(err) {
			return pairing.Identity{}, fmt.Errorf("directory: profile: %w", err)
		}
		return pairing.Identity{}, fmt.Errorf("directory: profile: %w: %w", pairing.ErrUnavailable, err)
	}
	name := prof.Get(pairing.ProfileFullName)
	if name == "" {
		return pairing.Identity{}, fmt.Errorf("directory: profile: %w: no full_name for %s", pairing.ErrNotFound, p)
	}
	return pairing.Identity{
		DisplayName: name,
		Email:       prof.Get("email"),
		AvatarRef:   prof.Get("avatar"),
	}, nil
}

// Static resuelve contra un mapa fijo participant → nombre.
type Static struct {
	names map[string]string
}

func NewStatic(names map[string]string) *Static {
	if names == nil {
		names = map[string]string{}
	}
	return &Static{names: names}
}

func (d *Static) Resolve(_ context.Context, _ pairing.TenantID, p pairing.ParticipantID) (pairing.Identity, error) {
	name, ok := d.names[string(p)]
	if !ok || name == "" {
		return pairing.Identity{}, fmt.Errorf("directory: static: %w: %s", pairing.ErrNotFound, p)
	}
	return pairing.Identity{DisplayName: name}, nil
}
