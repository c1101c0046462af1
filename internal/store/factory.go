package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// Config describe los backends a abrir.
type Config struct {
	// Storage backend del registry y la historia.
	Storage AdapterConfig
	// Profiles backend de perfiles. Name vacío o igual a Storage.Name reusa la conexión.
	Profiles AdapterConfig
}

// Stores agrupa los repositorios abiertos y sus conexiones.
type Stores struct {
	OptIns   pairing.OptInRepository
	History  pairing.HistoryRepository
	Profiles pairing.ProfileRepository

	conns []AdapterConnection
}

// Open abre el backend principal y, si corresponde, uno separado para perfiles.
func Open(ctx context.Context, cfg Config) (*Stores, error) {
	cfg.Storage.Name = normalizeDriver(cfg.Storage.Name)
	cfg.Profiles.Name = normalizeDriver(cfg.Profiles.Name)

	main, err := OpenAdapter(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Storage.Name, err)
	}
	s := &Stores{
		OptIns:  main.OptIns(),
		History: main.History(),
		conns:   []AdapterConnection{main},
	}
	if s.OptIns == nil || s.History == nil {
		_ = main.Close()
		return nil, fmt.Errorf("store: %s: %w", cfg.Storage.Name, pairing.ErrNotSupported)
	}

	if cfg.Profiles.Name == "" || cfg.Profiles.Name == cfg.Storage.Name {
		s.Profiles = main.Profiles()
	} else {
		pc, err := OpenAdapter(ctx, cfg.Profiles)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("store: open profiles %s: %w", cfg.Profiles.Name, err)
		}
		s.conns = append(s.conns, pc)
		s.Profiles = pc.Profiles()
	}
	if s.Profiles == nil {
		_ = s.Close()
		return nil, fmt.Errorf("store: profiles: %w", pairing.ErrNotSupported)
	}
	return s, nil
}

// Ping verifica todas las conexiones.
func (s *Stores) Ping(ctx context.Context) error {
	for _, c := range s.conns {
		if err := c.Ping(ctx); err != nil {
			return pairing.Unavailable(fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return nil
}

// Drivers retorna los nombres de los backends abiertos.
func (s *Stores) Drivers() []string {
	out := make([]string, len(s.conns))
	for i, c := range s.conns {
		out[i] = c.Name()
	}
	return out
}

// Close cierra todas las conexiones.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.conns = nil
	return errors.Join(errs...)
}

func normalizeDriver(d string) string {
	switch d = strings.ToLower(strings.TrimSpace(d)); d {
	case "pg", "postgresql":
		return "postgres"
	case "sqlite3":
		return "sqlite"
	case "dynamo":
		return "dynamodb"
	default:
		return d
	}
}
