// Read file and folder metadata from Google Drive
package main

import (
	"github.com/drivemeta/drivemeta/cmd"
	_ "github.com/drivemeta/drivemeta/cmd/all" // import all commands
)

func main() {
	cmd.Main()
}
