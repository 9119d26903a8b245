package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("HOME", home)
	t.Setenv("EXPAND_TEST", "potato")
	for _, test := range []struct {
		in, want string
	}{
		{"", ""},
		{"~", filepath.FromSlash(home)},
		{filepath.FromSlash("~/dir/file.txt"), filepath.FromSlash(home + "/dir/file.txt")},
		{filepath.FromSlash("/dir/~/file.txt"), filepath.FromSlash("/dir/~/file.txt")},
		{filepath.FromSlash("~/${EXPAND_TEST}"), filepath.FromSlash(home + "/potato")},
	} {
		got := ShellExpand(test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestInstallRoot(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("/opt/drivemeta"), installRoot(filepath.FromSlash("/opt/drivemeta/bin/linux/drivemeta")))
	assert.Equal(t, filepath.FromSlash("/"), installRoot(filepath.FromSlash("/drivemeta")))

	root, err := InstallRoot()
	require.NoError(t, err)
	assert.NotEmpty(t, root)
}
