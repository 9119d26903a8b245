// Package cmd implements the drivemeta command
//
// It is in a sub package so it's internals can be re-used elsewhere
package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/drivemeta/drivemeta/backend/drive"
	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/fs/config/configfile"
	"github.com/drivemeta/drivemeta/fs/config/configflags"
	"github.com/drivemeta/drivemeta/fs/config/configmap"
	"github.com/drivemeta/drivemeta/fs/config/configstruct"
	"github.com/drivemeta/drivemeta/fs/config/flags"
	"github.com/drivemeta/drivemeta/fs/fserrors"
	"github.com/drivemeta/drivemeta/fs/fshttp"
	"github.com/drivemeta/drivemeta/lib/cache"
	"github.com/drivemeta/drivemeta/lib/env"
	"github.com/drivemeta/drivemeta/lib/exitcode"
	"github.com/drivemeta/drivemeta/lib/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// BackendName is the config section and flag prefix of the Drive options
const BackendName = "drive"

// Globals
var (
	// Flags
	configPath = "~/.config/drivemeta/drivemeta.yaml"
	// Loaded config file
	configFile *configfile.File
	// Metrics server if running
	metricsServer *metrics.Server
)

// Root is the main drivemeta command
var Root = &cobra.Command{
	Use:   "drivemeta",
	Short: "Read file and folder metadata from Google Drive",
	Long: `
drivemeta reads file and folder metadata from Google Drive using a
service account.  API calls are paced to stay inside Drive's quota
and every worker uses its own authorized client.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	ci := fs.GetConfig(context.Background())
	flagSet := Root.PersistentFlags()
	flags.StringVarP(flagSet, &configPath, "config", "", configPath, "Config file."+env.ShellExpandHelp)
	configflags.AddFlags(ci, flagSet)
	AddBackendFlags(flagSet)
	cobra.OnInitialize(initConfig)
}

// backendFlagName converts an option name into its flag name, eg
// "service_account_file" into "drive-service-account-file"
func backendFlagName(name string) string {
	return BackendName + "-" + strings.Replace(name, "_", "-", -1)
}

// AddBackendFlags adds a --drive-* flag for each Drive option
func AddBackendFlags(flagSet *pflag.FlagSet) {
	opt := drive.DefaultOptions()
	items, err := configstruct.Items(&opt)
	if err != nil {
		panic(err)
	}
	for _, item := range items {
		name := backendFlagName(item.Name)
		if flagSet.Lookup(name) != nil {
			fs.Errorf(nil, "Not adding duplicate flag --%s", name)
			continue
		}
		value := new(string)
		flags.StringVarP(flagSet, value, name, "", fmt.Sprint(item.Value), item.Help)
	}
}

// flagGetter reads backend options from the --drive-* flags which
// have been set
type flagGetter struct {
	flagSet *pflag.FlagSet
}

// Get the value of the flag for key if it was set
func (g flagGetter) Get(key string) (value string, ok bool) {
	flag := g.flagSet.Lookup(backendFlagName(key))
	if flag == nil || !flag.Changed {
		return "", false
	}
	return flag.Value.String(), true
}

// backendConfig layers the places Drive options come from, highest
// priority first
func backendConfig(flagSet *pflag.FlagSet, file *configfile.File) configmap.Getter {
	m := configmap.New()
	m.AddGetter(flagGetter{flagSet: flagSet})
	m.AddGetter(configmap.Env{Section: BackendName})
	if file != nil {
		m.AddGetter(file.Section(BackendName))
	}
	return m
}

// NewFs makes the Drive Fs from the flags, environment and config file
func NewFs(ctx context.Context) *drive.Fs {
	f, err := drive.NewFs(ctx, BackendName, backendConfig(Root.PersistentFlags(), configFile))
	if err != nil {
		err = fs.CountError(err)
		fs.Errorf(nil, "Failed to create Drive client: %v", err)
		resolveExitCode(fserrors.FatalError(err))
	}
	return f
}

// Run the function and exit with the right code for the error
func Run(command *cobra.Command, f func() error) {
	start := time.Now()
	cmdErr := fs.CountError(f())
	fs.Debugf(nil, "%s took %v", command.Name(), time.Since(start))
	fs.Debugf(nil, "%d go routines active", runtime.NumGoroutine())
	if cmdErr != nil {
		fs.Errorf(nil, "Failed to %s: %v", command.Name(), cmdErr)
	}
	resolveExitCode(cmdErr)
}

// CheckArgs checks there are enough arguments and prints a message if not
func CheckArgs(MinArgs, MaxArgs int, cmd *cobra.Command, args []string) {
	if len(args) < MinArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments minimum: you provided %d non flag arguments: %q\n", cmd.Name(), MinArgs, len(args), args)
		resolveExitCode(fs.ErrorNotEnoughArguments)
	} else if MaxArgs >= 0 && len(args) > MaxArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments maximum: you provided %d non flag arguments: %q\n", cmd.Name(), MaxArgs, len(args), args)
		resolveExitCode(fs.ErrorTooManyArguments)
	}
}

// loadConfigFile reads the config file at path and sets any flags in
// flagSet not given on the command line from it
func loadConfigFile(path string, flagSet *pflag.FlagSet) (*configfile.File, error) {
	file, err := configfile.Load(path)
	if err != nil {
		return nil, err
	}
	if err = file.SetFlags(flagSet); err != nil {
		return nil, errors.Wrapf(err, "config file %q", path)
	}
	return file, nil
}

// initConfig is run by cobra after initialising the flags
func initConfig() {
	ctx := context.Background()
	ci := fs.GetConfig(ctx)
	flagSet := Root.PersistentFlags()

	// Load the config file and use it for flags not set
	var err error
	configFile, err = loadConfigFile(env.ShellExpand(configPath), flagSet)
	if err != nil {
		fs.Errorf(nil, "Failed to load config: %v", err)
		resolveExitCode(fserrors.FatalError(err))
	}

	// Finish parsing any command line flags
	err = configflags.SetFlags(ci, flagSet)
	if err != nil {
		fs.Errorf(nil, "Bad flags: %v", err)
		resolveExitCode(err)
	}

	// Start the logger
	fs.InitLogging(ci, os.Stderr)

	// Write the args for debug purposes
	fs.Debugf("drivemeta", "Version %q starting with parameters %q", fs.Version, os.Args)

	if ci.MetricsAddr != "" {
		err = startMetrics(ci.MetricsAddr)
		if err != nil {
			fs.Errorf(nil, "%v", err)
			resolveExitCode(fserrors.FatalError(err))
		}
	}
}

// startMetrics turns on metrics collection and serves them on addr
func startMetrics(addr string) error {
	fshttp.DefaultMetrics = fshttp.NewMetrics(metrics.Namespace)
	cache.DefaultMetrics = cache.NewMetrics(metrics.Namespace)
	drive.DefaultMetrics = drive.NewMetrics(metrics.Namespace)
	reg, err := metrics.NewRegistry(
		fshttp.DefaultMetrics.Collectors(),
		cache.DefaultMetrics.Collectors(),
		drive.DefaultMetrics.Collectors(),
	)
	if err != nil {
		return err
	}
	metricsServer, err = metrics.Start(addr, reg)
	return err
}

// stopMetrics shuts the metrics server down if it is running
func stopMetrics() {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		fs.Errorf(nil, "Failed to stop metrics server: %v", err)
	}
	metricsServer = nil
}

// exitCode works out the exit status for err
func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	unwrapped := fserrors.Cause(err)
	switch {
	case fserrors.IsFatalError(err):
		return exitcode.FatalError
	case unwrapped == fs.ErrorObjectNotFound:
		return exitcode.FileNotFound
	default:
		return exitcode.UsageError
	}
}

// resolveExitCode exits with the status for err
func resolveExitCode(err error) {
	stopMetrics()
	os.Exit(exitCode(err))
}

// Main runs drivemeta
func Main() {
	if err := Root.Execute(); err != nil {
		fs.Errorf(nil, "Fatal error: %v", err)
		if strings.HasPrefix(err.Error(), "unknown command") {
			_ = Root.Usage()
		}
		resolveExitCode(err)
	}
}
