// Package env contains functions for dealing with the environment
// the binary runs in
package env

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// ShellExpandHelp describes what ShellExpand does for inclusion into help
const ShellExpandHelp = "\n\nLeading `~` will be expanded in the file name as will environment variables such as `${HOME}`.\n"

// ShellExpand replaces a leading "~" with the home directory" and
// expands all environment variables afterwards.
func ShellExpand(s string) string {
	if s != "" {
		if s[0] == '~' {
			newS, err := homedir.Expand(s)
			if err == nil {
				s = newS
			}
		}
		s = os.ExpandEnv(s)
	}
	return s
}

// InstallRoot returns the directory three levels above the running
// executable, eg /opt/drivemeta for /opt/drivemeta/bin/linux/drivemeta.
// Symlinks to the executable are resolved first.
func InstallRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return installRoot(exe), nil
}

func installRoot(exe string) string {
	return filepath.Dir(filepath.Dir(filepath.Dir(exe)))
}
