package stat

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/drivemeta/drivemeta/backend/drive"
	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/fs/config/configmap"
	"github.com/drivemeta/drivemeta/fstest/drivetest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFs(t *testing.T, fd *drivetest.Server) *drive.Fs {
	f, err := drive.NewFs(context.Background(), "drive", configmap.Simple(fd.Config()))
	require.NoError(t, err)
	return f
}

func lines(buf *bytes.Buffer) []string {
	out := strings.Split(strings.TrimSpace(buf.String()), "\n")
	sort.Strings(out)
	return out
}

func TestStat(t *testing.T) {
	fd := drivetest.New(t)
	fd.AddFolder("root", "Root")
	fd.AddFolder("sub", "Sub", "root")
	fd.AddImage("img", "card.png", "sub")
	f := newFs(t, fd)

	var buf bytes.Buffer
	err := Stat(context.Background(), f, []string{"sub", "img", "root"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`{"id":"img","name":"card.png","size":4096,"createdTime":"2022-06-01T10:11:12Z","height":1110,"folderId":"sub","folder":"Root / Sub"}`,
		`{"id":"root","name":"Root","path":"Root","topLevel":"Root"}`,
		`{"id":"sub","name":"Sub","parentId":"root","path":"Root / Sub","topLevel":"Root"}`,
	}, lines(&buf))
}

func TestStatMissing(t *testing.T) {
	fd := drivetest.New(t)
	fd.AddImage("img", "card.png")
	fd.SetStatus("secret", http.StatusForbidden)
	f := newFs(t, fd)

	var buf bytes.Buffer
	err := Stat(context.Background(), f, []string{"gone", "img", "secret"}, &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrorObjectNotFound), err)
	assert.Contains(t, err.Error(), "2 errors")
	assert.Equal(t, []string{
		`{"id":"img","name":"card.png","size":4096,"createdTime":"2022-06-01T10:11:12Z","height":1110}`,
	}, lines(&buf))
}

func TestStatTransportError(t *testing.T) {
	fd := drivetest.New(t)
	f := newFs(t, fd)

	var buf bytes.Buffer
	err := Stat(context.Background(), f, []string{drivetest.BrokenID}, &buf)
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrorObjectNotFound), err)
	assert.Contains(t, err.Error(), `"broken"`)
	assert.Equal(t, "", buf.String())
}
