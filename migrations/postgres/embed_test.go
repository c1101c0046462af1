package postgres

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// participant_a < participant_b debe evaluarse en orden de bytes, igual que
// pairing.NewEdge; con la collation por defecto "a" < "B" y el CHECK falla.
func TestPairingHistory_ByteOrderCollation(t *testing.T) {
	raw, err := fs.ReadFile(FS, "0001_init_up.sql")
	require.NoError(t, err)

	for _, col := range []string{"participant_a", "participant_b"} {
		re := regexp.MustCompile(col + `\s+TEXT\s+COLLATE\s+"C"\s+NOT NULL`)
		require.Regexp(t, re, string(raw), "%s must use COLLATE \"C\"", col)
	}
}
