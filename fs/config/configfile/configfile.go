// Package configfile reads the YAML config file.
//
// The file holds one mapping per section, eg
//
//	global:
//	  checkers: 4
//	drive:
//	  service_account_file: /etc/drivemeta/client_secrets.json
package configfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/fs/config/configmap"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// GlobalSection holds the values of the global flags
const GlobalSection = "global"

// File is a parsed config file
type File struct {
	path     string
	sections map[string]configmap.Simple
}

// Load reads and parses the config file at path.  A missing file is
// not an error and gives an empty config.
func Load(path string) (*File, error) {
	f := &File{
		path:     path,
		sections: map[string]configmap.Simple{},
	}
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fs.Debugf(nil, "Config file %q not found - using defaults", path)
		return f, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return f, f.parse(data)
}

// Parse parses the YAML config in data
func Parse(data []byte) (*File, error) {
	f := &File{sections: map[string]configmap.Simple{}}
	return f, f.parse(data)
}

func (f *File) parse(data []byte) error {
	var raw map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "failed to parse config file %q", f.path)
	}
	for section, items := range raw {
		simple := configmap.Simple{}
		for key, value := range items {
			if value == nil {
				continue
			}
			simple[key] = fmt.Sprint(value)
		}
		f.sections[section] = simple
	}
	return nil
}

// Section returns a configmap.Getter for the named section.  It is
// never nil.
func (f *File) Section(name string) configmap.Getter {
	if s, ok := f.sections[name]; ok {
		return s
	}
	return configmap.Simple{}
}

// SetFlags applies the global section to any flags in flagSet which
// weren't set on the command line.  Keys are the flag names with "-"
// replaced by "_".
func (f *File) SetFlags(flagSet *pflag.FlagSet) (err error) {
	global := f.Section(GlobalSection)
	flagSet.VisitAll(func(flag *pflag.Flag) {
		if err != nil || flag.Changed {
			return
		}
		value, ok := global.Get(strings.Replace(flag.Name, "-", "_", -1))
		if !ok {
			return
		}
		if setErr := flag.Value.Set(value); setErr != nil {
			err = errors.Wrapf(setErr, "invalid value %q for %s in config file", value, flag.Name)
			return
		}
		fs.Debugf(nil, "Setting --%s %q from config file", flag.Name, value)
	})
	return err
}
