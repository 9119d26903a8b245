// Package stat provides the stat command.
package stat

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/drivemeta/drivemeta/backend/drive"
	"github.com/drivemeta/drivemeta/cmd"
	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/lib/errcount"
	"github.com/drivemeta/drivemeta/lib/workers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "stat ID [ID...]",
	Short: `Print the metadata of Drive files and folders as JSON.`,
	Long: `Reads each ID from Drive and prints one JSON object per line.

Folders are printed with their full path and top level folder, eg

    {"id":"1a2b","name":"Sub","parentId":"0x9y","path":"Root / Sub","topLevel":"Root"}

and anything else as an image

    {"id":"3c4d","name":"card.png","size":4096,"createdTime":"2022-06-01T10:11:12Z","height":1110,"folderId":"1a2b","folder":"Root / Sub"}

IDs are read in parallel by --checkers workers so the output is not
in the order given.  IDs which can't be read are logged and make the
command exit with code 4 once everything else has been printed.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, -1, command, args)
		ctx := context.Background()
		f := cmd.NewFs(ctx)
		cmd.Run(command, func() error {
			return Stat(ctx, f, args, os.Stdout)
		})
	},
}

// Stat prints the metadata for each id to out as JSON lines
func Stat(ctx context.Context, f *drive.Fs, ids []string, out io.Writer) error {
	ci := fs.GetConfig(ctx)
	var (
		mu      sync.Mutex
		enc     = json.NewEncoder(out)
		missing = errcount.New()
	)
	err := workers.Run(ctx, ci.Checkers, ids, func(ctx context.Context, id string) error {
		folder, img, err := f.Lookup(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "%q", id)
		}
		var record interface{}
		switch {
		case folder != nil:
			record = folder
		case img != nil:
			record = img
		default:
			fs.Errorf(id, "Couldn't read from Drive")
			missing.Add(errors.Wrap(fs.ErrorObjectNotFound, id))
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(record)
	}, workers.OnExit(f.ReleaseClient))
	if err != nil {
		return err
	}
	if n := missing.Count(); n > 0 {
		fs.Logf(nil, "%d of %d IDs couldn't be read", n, len(ids))
	}
	return missing.Err("stat")
}
