package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Formato de archivo: {version}_{name}_up.sql / {version}_{name}_down.sql
// (ej: 0001_init_up.sql). Las migraciones viven embebidas en migrations/.

// Direction de una migración.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// SQL retorna el script para la dirección pedida.
func (m Migration) SQL(d Direction) string {
	if d == Down {
		return m.DownSQL
	}
	return m.UpSQL
}

// MigrationExecutor abstrae pgx vs database/sql.
type MigrationExecutor interface {
	// EnsureTable crea la tabla _migrations si no existe.
	EnsureTable(ctx context.Context) error
	// AppliedVersions retorna las versiones ya aplicadas.
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	// Apply ejecuta el script y registra/borra la versión en una transacción.
	Apply(ctx context.Context, m Migration, d Direction) error
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)_(up|down)\.sql$`)

// Migrator aplica migraciones SQL desde un FS.
type Migrator struct {
	fsys fs.FS
	dir  string
}

// NewMigrator crea un nuevo Migrator.
func NewMigrator(fsys fs.FS, dir string) *Migrator {
	if dir == "" {
		dir = "."
	}
	return &Migrator{fsys: fsys, dir: dir}
}

// ParseMigrations lee y ordena las migraciones del FS.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read dir: %w", err)
	}

	byVersion := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, _ := strconv.Atoi(matches[1])
		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrate: reading %s: %w", e.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: matches[2]}
			byVersion[version] = mig
		}
		if Direction(matches[3]) == Up {
			mig.UpSQL = string(content)
		} else {
			mig.DownSQL = string(content)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.UpSQL == "" {
			return nil, fmt.Errorf("migrate: version %d has no up script", mig.Version)
		}
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up aplica las migraciones pendientes en orden ascendente.
func (m *Migrator) Up(ctx context.Context, exec MigrationExecutor) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	migrations, applied, err := m.prepare(ctx, exec)
	if err != nil {
		return result, err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := exec.Apply(ctx, mig, Up); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("migrate: applying %04d_%s: %w", mig.Version, mig.Name, err)
		}
		result.Applied = append(result.Applied, mig.Version)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// Down revierte las últimas `steps` migraciones aplicadas (steps <= 0 = todas).
func (m *Migrator) Down(ctx context.Context, exec MigrationExecutor, steps int) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	migrations, applied, err := m.prepare(ctx, exec)
	if err != nil {
		return result, err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		if steps > 0 && len(result.Applied) >= steps {
			break
		}
		mig := migrations[i]
		if !applied[mig.Version] {
			continue
		}
		if mig.DownSQL == "" {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("migrate: version %d has no down script", mig.Version)
		}
		if err := exec.Apply(ctx, mig, Down); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("migrate: reverting %04d_%s: %w", mig.Version, mig.Name, err)
		}
		result.Applied = append(result.Applied, mig.Version)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// HasPending verifica si hay migraciones sin aplicar.
func (m *Migrator) HasPending(ctx context.Context, exec MigrationExecutor) (bool, error) {
	migrations, applied, err := m.prepare(ctx, exec)
	if err != nil {
		return false, err
	}
	for _, mig := range migrations {
		if !applied[mig.Version] {
			return true, nil
		}
	}
	return false, nil
}

func (m *Migrator) prepare(ctx context.Context, exec MigrationExecutor) ([]Migration, map[int]bool, error) {
	if err := exec.EnsureTable(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate: creating migrations table: %w", err)
	}
	applied, err := exec.AppliedVersions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate: getting applied migrations: %w", err)
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return nil, nil, err
	}
	return migrations, applied, nil
}
