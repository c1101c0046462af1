package pairing

import "context"

// OptInRepository es el Opt-in Registry.
type OptInRepository interface {
	// OptIn hace upsert de la elegibilidad. created=true si no estaba inscripto.
	OptIn(ctx context.Context, tenant TenantID, p ParticipantID, annotation string) (created bool, err error)

	// OptOut elimina la elegibilidad. Idempotente: sin error si no existe.
	OptOut(ctx context.Context, tenant TenantID, p ParticipantID) error

	// IsOptedIn verifica elegibilidad.
	IsOptedIn(ctx context.Context, tenant TenantID, p ParticipantID) (bool, error)

	// Get retorna el registro. ErrNotFound si no existe.
	Get(ctx context.Context, tenant TenantID, p ParticipantID) (*OptInRecord, error)

	// ListEligible retorna los elegibles del tenant. El orden no importa.
	ListEligible(ctx context.Context, tenant TenantID) ([]ParticipantID, error)

	// ListTenants retorna los tenants con al menos un opt-in.
	ListTenants(ctx context.Context) ([]TenantID, error)
}

// HistoryRepository es el Pairing History Store (append-only).
type HistoryRepository interface {
	// HasBeenPaired es simétrico: el orden de a y b no importa.
	HasBeenPaired(ctx context.Context, tenant TenantID, a, b ParticipantID) (bool, error)

	// RecordPair agrega la arista. Un duplicado es no-op (nunca ErrDuplicateEdge).
	RecordPair(ctx context.Context, tenant TenantID, a, b ParticipantID) error

	// AllPairedAmong es true si todos los pares del conjunto ya existen.
	AllPairedAmong(ctx context.Context, tenant TenantID, participants []ParticipantID) (bool, error)

	// ListEdges retorna las aristas que tocan a p (todas si p == "").
	ListEdges(ctx context.Context, tenant TenantID, p ParticipantID) ([]Edge, error)
}

// ProfileRepository guarda atributos libres por participante.
type ProfileRepository interface {
	// Get retorna el perfil. ErrNotFound si no existe.
	Get(ctx context.Context, tenant TenantID, p ParticipantID) (*Profile, error)

	// Upsert reemplaza los atributos del perfil.
	Upsert(ctx context.Context, profile Profile) error

	// Delete es idempotente.
	Delete(ctx context.Context, tenant TenantID, p ParticipantID) error
}

// Directory resuelve la identidad visible de un participante.
type Directory interface {
	// Resolve falla con ErrNotFound o ErrUnavailable.
	Resolve(ctx context.Context, tenant TenantID, p ParticipantID) (Identity, error)
}

// Message es lo que el Notifier entrega a un grupo o participante.
type Message struct {
	Tenant     TenantID
	Targets    []ParticipantID
	Identities map[ParticipantID]Identity
	Subject    string
	Text       string
}

// Notifier entrega mensajes. Los fallos envuelven ErrDelivery.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ValidateIDs verifica ids no vacíos.
func ValidateIDs(tenant TenantID, ps ...ParticipantID) error {
	if tenant == "" {
		return ErrInvalidInput
	}
	for _, p := range ps {
		if p == "" {
			return ErrInvalidInput
		}
	}
	return nil
}
