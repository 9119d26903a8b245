// Package path provides the path command.
package path

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/drivemeta/drivemeta/backend/drive"
	"github.com/drivemeta/drivemeta/cmd"
	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/lib/errcount"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	topLevel = false
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
	cmdFlags := commandDefinition.Flags()
	cmdFlags.BoolVarP(&topLevel, "top-level", "t", false, "Print the top level folder name before each path")
}

var commandDefinition = &cobra.Command{
	Use:   "path FOLDER_ID [FOLDER_ID...]",
	Short: `Print the full path of Drive folders.`,
	Long: `Resolves each folder and its ancestors and prints the path from the
top level folder down with the names separated by " / ", eg

    $ drivemeta path 1a2b
    My Drive / Cards / Sub

Use --top-level to print the top level folder name and a tab first.
Folders are resolved one at a time in the order given.
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(1, -1, command, args)
		ctx := context.Background()
		f := cmd.NewFs(ctx)
		cmd.Run(command, func() error {
			return Path(ctx, f, args, topLevel, os.Stdout)
		})
	},
}

// Path prints the full path of each folder id to out
func Path(ctx context.Context, f *drive.Fs, ids []string, topLevel bool, out io.Writer) error {
	missing := errcount.New()
	for _, id := range ids {
		folder, err := f.Folder(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "%q", id)
		}
		if folder == nil {
			fs.Errorf(id, "Couldn't read from Drive")
			missing.Add(errors.Wrap(fs.ErrorObjectNotFound, id))
			continue
		}
		if topLevel {
			_, err = fmt.Fprintf(out, "%s\t%s\n", folder.TopLevelFolder().Name, folder.FullPath())
		} else {
			_, err = fmt.Fprintln(out, folder.FullPath())
		}
		if err != nil {
			return err
		}
	}
	return missing.Err("path")
}
