// Package lock provee la sección crítica por tenant: leer elegibles,
// decidir grupos y registrar aristas nunca corre dos veces en paralelo
// para el mismo tenant.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired indica que el contexto venció antes de obtener el lock.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker adquiere locks exclusivos por clave.
type Locker interface {
	// Acquire bloquea hasta obtener el lock o hasta que ctx venza.
	// release es idempotente.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// TenantKey retorna la clave de lock de un tenant.
func TenantKey(tenant string) string {
	return "tenant:" + tenant
}
