package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirectories(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "config", "syncbridge", "syncbridge.db")

	got, err := EnsureParentDir(dbPath)
	require.NoError(t, err)

	want := filepath.Join(tmp, "config", "syncbridge")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}

	_, err = os.Stat(dbPath)
	require.True(t, os.IsNotExist(err), "the file itself is not created")
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sb", "x.db")

	first, err := EnsureParentDir(dbPath)
	require.NoError(t, err)

	second, err := EnsureParentDir(dbPath)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestEnsureParentDir_RelativePath(t *testing.T) {
	tmp := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(old) })

	got, err := EnsureParentDir(filepath.Join("data", "x.db"))
	require.NoError(t, err)

	real, err := filepath.EvalSymlinks(tmp)
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(real, "data"), gotReal)
}

func TestEnsureParentDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "sb")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "x.db"))
	require.Error(t, err, "should fail when a file exists with the parent's name")
}
