// Package version provides the version command.
package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/drivemeta/drivemeta/cmd"
	"github.com/drivemeta/drivemeta/fs"
	"github.com/spf13/cobra"
)

func init() {
	cmd.Root.AddCommand(commandDefinition)
}

var commandDefinition = &cobra.Command{
	Use:   "version",
	Short: `Show the version number.`,
	Long: `Show the drivemeta version number, the go version and the build
target OS and architecture.

For example:

    $ drivemeta version
    drivemeta v0.1.0
    - os/type: linux
    - os/arch: amd64
    - go/version: go1.21.0
`,
	Run: func(command *cobra.Command, args []string) {
		cmd.CheckArgs(0, 0, command, args)
		ShowVersion(os.Stdout)
	},
}

// ShowVersion prints the version to out
func ShowVersion(out io.Writer) {
	_, _ = fmt.Fprintf(out, "drivemeta %s\n", fs.Version)
	_, _ = fmt.Fprintf(out, "- os/type: %s\n", runtime.GOOS)
	_, _ = fmt.Fprintf(out, "- os/arch: %s\n", runtime.GOARCH)
	_, _ = fmt.Fprintf(out, "- go/version: %s\n", runtime.Version())
}
