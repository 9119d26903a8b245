// Package all imports all the commands
package all

import (
	// Active commands
	_ "github.com/drivemeta/drivemeta/cmd/path"
	_ "github.com/drivemeta/drivemeta/cmd/stat"
	_ "github.com/drivemeta/drivemeta/cmd/version"
)
