// Package store provee el registry de adaptadores de almacenamiento
// del Opt-in Registry, la historia de pares y los perfiles.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// Adapter representa un adaptador capaz de abrir conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "sqlite", "redis", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// ─── Repositorios (nil si no soportado) ───

	OptIns() pairing.OptInRepository
	History() pairing.HistoryRepository
	Profiles() pairing.ProfileRepository
}

// MigratableConnection es implementada por las conexiones SQL.
type MigratableConnection interface {
	MigrationExecutor() MigrationExecutor
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "memory", "postgres", "sqlite", "redis", "dynamodb"
	Name string

	// DSN connection string (postgres)
	DSN string

	// Path archivo de la base (sqlite)
	Path string

	// Pool settings
	MaxOpenConns int
	MaxIdleConns int

	// AutoMigrate aplica migraciones pendientes al conectar (sqlite siempre migra).
	AutoMigrate bool

	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	DynamoDB struct {
		Table    string
		Region   string
		Endpoint string
	}
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered", cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
