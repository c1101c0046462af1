package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/slack"
)

// Slack resuelve identidades con users.info.
type Slack struct {
	client *slack.Client
}

func NewSlack(client *slack.Client) *Slack {
	return &Slack{client: client}
}

func (d *Slack) Resolve(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (pairing.Identity, error) {
	u, err := d.client.UserInfo(ctx, string(tenant), string(p))
	if err != nil {
		var apiErr *slack.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return pairing.Identity{}, fmt.Errorf("directory: slack: %w", errors.Join(pairing.ErrNotFound, err))
		}
		return pairing.Identity{}, fmt.Errorf("directory: slack: %w", errors.Join(pairing.ErrUnavailable, err))
	}

	name := firstNonEmpty(u.Profile.RealName, u.RealName, u.Profile.DisplayName, u.Name)
	if name == "" {
		return pairing.Identity{}, fmt.Errorf("directory: slack: %w: empty name for %s", pairing.ErrNotFound, p)
	}
	return pairing.Identity{
		DisplayName: name,
		AvatarRef:   u.Profile.Image192,
		Email:       u.Profile.Email,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
