package pairing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TenantID identifica un límite de aislamiento (workspace/organización).
type TenantID string

// ParticipantID identifica a un participante dentro de un tenant.
type ParticipantID string

// OptInRecord marca a un participante como elegible para la próxima ronda.
// La existencia del registro es la única señal de elegibilidad.
type OptInRecord struct {
	Tenant      TenantID      `json:"tenant"`
	Participant ParticipantID `json:"participant"`
	Annotation  string        `json:"annotation,omitempty"`
	OptedInAt   time.Time     `json:"opted_in_at"`
}

// Edge es un par no dirigido ya emparejado. A < B siempre (ver NewEdge).
type Edge struct {
	Tenant   TenantID      `json:"tenant"`
	A        ParticipantID `json:"a"`
	B        ParticipantID `json:"b"`
	PairedAt time.Time     `json:"paired_at"`
}

// NewEdge normaliza el par para que el orden de a y b no importe.
func NewEdge(tenant TenantID, a, b ParticipantID) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{Tenant: tenant, A: a, B: b}
}

// Key retorna la clave canónica "{len(a)}:a|b" del par. El largo de a
// delimita los ids, que pueden contener cualquier carácter.
func (e Edge) Key() string {
	return strconv.Itoa(len(e.A)) + ":" + string(e.A) + "|" + string(e.B)
}

// Touches indica si el participante es uno de los extremos.
func (e Edge) Touches(p ParticipantID) bool {
	return e.A == p || e.B == p
}

// ParseEdgeKey es la inversa de Edge.Key.
func ParseEdgeKey(tenant TenantID, key string) (Edge, error) {
	malformed := fmt.Errorf("%w: malformed edge key %q", ErrInvalidInput, key)
	size, rest, ok := strings.Cut(key, ":")
	if !ok {
		return Edge{}, malformed
	}
	n, err := strconv.Atoi(size)
	if err != nil || n <= 0 || len(rest) < n+2 || rest[n] != '|' {
		return Edge{}, malformed
	}
	return NewEdge(tenant, ParticipantID(rest[:n]), ParticipantID(rest[n+1:])), nil
}

// Grouping es el resultado efímero de una corrida: 2 o 3 miembros.
// No se persiste como entidad; sus aristas van a la historia.
type Grouping struct {
	Tenant  TenantID        `json:"tenant"`
	Members []ParticipantID `json:"members"`
}

// Size retorna la cantidad de miembros.
func (g Grouping) Size() int { return len(g.Members) }

// Edges retorna los pares constituyentes (1 para pareja, 3 para trío).
func (g Grouping) Edges() []Edge {
	return EdgesAmong(g.Tenant, g.Members)
}

// MemberStrings es un helper para logs.
func (g Grouping) MemberStrings() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = string(m)
	}
	return out
}

// EdgesAmong retorna todos los pares no ordenados del conjunto.
func EdgesAmong(tenant TenantID, members []ParticipantID) []Edge {
	if len(members) < 2 {
		return nil
	}
	edges := make([]Edge, 0, len(members)*(len(members)-1)/2)
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			edges = append(edges, NewEdge(tenant, members[i], members[j]))
		}
	}
	return edges
}

// Identity es la identidad visible resuelta por el Directory Service.
type Identity struct {
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Profile son atributos libres del participante. Nunca se usan para emparejar,
// solo para componer el contenido de la notificación.
type Profile struct {
	Tenant      TenantID          `json:"tenant"`
	Participant ParticipantID     `json:"participant"`
	Attributes  map[string]string `json:"attributes"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Claves conocidas del perfil.
const (
	ProfileFullName   = "full_name"
	ProfileBio        = "bio"
	ProfilePronouns   = "pronouns"
	ProfileLocation   = "location"
	ProfileHometown   = "hometown"
	ProfileEducation  = "education"
	ProfileLanguages  = "languages"
	ProfileHobbies    = "hobbies"
	ProfileBirthday   = "birthday"
	ProfileAskMeAbout = "ask_me_about"
)

// Get retorna el atributo o "" si no existe.
func (p *Profile) Get(key string) string {
	if p == nil || p.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(p.Attributes[key])
}

// SortParticipants ordena in-place; útil para salidas estables.
func SortParticipants(ps []ParticipantID) {
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
}
