package factory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSinkFromDSNSQLite(t *testing.T) {
	for _, dsn := range []string{
		"sqlite://" + filepath.Join(t.TempDir(), "a.db"),
		filepath.Join(t.TempDir(), "b.db"),
		":memory:",
	} {
		s, err := NewSinkFromDSN(dsn)
		require.NoError(t, err, dsn)
		require.NoError(t, s.Close())
	}
}

func TestNewSinkFromDSNRejectsUnknown(t *testing.T) {
	_, err := NewSinkFromDSN("redis://localhost:6379")
	require.Error(t, err)

	_, err = NewSinkFromDSN("")
	require.Error(t, err)
}
