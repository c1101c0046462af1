// Package postgres embebe las migraciones SQL de PostgreSQL.
package postgres

import "embed"

// FS contiene los scripts {version}_{name}_up.sql / _down.sql.
//
//go:embed *.sql
var FS embed.FS
