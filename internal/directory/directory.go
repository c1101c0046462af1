// Package directory resuelve participantes a identidades visibles.
//
// Adapters:
//   - slack: Web API users.info con el token del workspace del tenant
//   - profile: atributo full_name del Profile Store
//   - static: mapa fijo (dev/tests)
//
// Cached decora cualquiera de ellos con cache.Client + singleflight.
package directory

import (
	"fmt"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/slack"
)

// Deps son las dependencias que puede necesitar un adapter.
type Deps struct {
	Slack    *slack.Client
	Profiles pairing.ProfileRepository
	Static   map[string]string
}

// New construye el adapter del driver dado.
func New(driver string, deps Deps) (pairing.Directory, error) {
	switch driver {
	case "slack":
		if deps.Slack == nil {
			return nil, fmt.Errorf("directory: slack driver requires a client")
		}
		return NewSlack(deps.Slack), nil
	case "", "profile":
		if deps.Profiles == nil {
			return nil, fmt.Errorf("directory: profile driver requires a profile store")
		}
		return NewProfile(deps.Profiles), nil
	case "static":
		return NewStatic(deps.Static), nil
	default:
		return nil, fmt.Errorf("directory: unknown driver %q", driver)
	}
}
