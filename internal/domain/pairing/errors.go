package pairing

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indica que el registry o la historia no responden.
	// El tenant se salta y se reintenta en el próximo tick.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateEdge indica que el par ya existía. Los adapters lo tratan
	// como no-op y nunca lo devuelven hacia arriba.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrDelivery indica que el Notifier no pudo entregar el mensaje.
	ErrDelivery = errors.New("delivery failed")

	// ErrUnavailable indica que el Directory Service no responde.
	ErrUnavailable = errors.New("directory unavailable")

	// ErrNotSupported indica que el adapter no implementa el repositorio.
	ErrNotSupported = errors.New("not supported by adapter")
)

// Unavailable marca err como ErrStoreUnavailable conservando la causa.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreUnavailable verifica si el error es ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsDelivery verifica si el error es ErrDelivery.
func IsDelivery(err error) bool {
	return errors.Is(err, ErrDelivery)
}
