// Package sqlite embebe las migraciones SQL de SQLite.
package sqlite

import "embed"

// FS contiene los scripts {version}_{name}_up.sql / _down.sql.
//
//go:embed *.sql
var FS embed.FS
