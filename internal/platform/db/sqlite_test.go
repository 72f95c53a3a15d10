package db

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "whitelist.db")

	conn, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer conn.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}

	_, err = conn.Exec("CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err, "database file should exist")
}

func TestOpenSQLiteMemory(t *testing.T) {
	conn, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	var one int
	require.NoError(t, conn.QueryRow("SELECT 1").Scan(&one))
	require.Equal(t, 1, one)
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	require.Error(t, err)
}

func TestOpenPostgresRejectsEmptyDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	require.Error(t, err)
}
