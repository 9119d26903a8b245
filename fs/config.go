package fs

import (
	"context"
	"strings"
	"time"
)

// Version of drivemeta
var Version = "v0.1.0-DEV"

// Global
var (
	// globalConfig for drivemeta
	globalConfig = NewConfig()

	// CountError counts an error.  If any errors have been
	// counted then it will exit with a non zero error code.
	//
	// This is a function pointer to decouple the stats
	// implementation from the fs
	CountError = func(err error) error { return err }
)

// ConfigInfo is global config options
type ConfigInfo struct {
	LogLevel       LogLevel
	UseJSONLog     bool
	Checkers       int
	ConnectTimeout time.Duration // Connect timeout
	Timeout        time.Duration // Data channel timeout
	TPSLimit       float64
	TPSLimitBurst  int
	UserAgent      string
	MetricsAddr    string
}

// NewConfig creates a new config with everything set to the default
// value.  These are the ultimate defaults and are overridden by the
// config module.
func NewConfig() *ConfigInfo {
	c := new(ConfigInfo)

	// Set any values which aren't the zero for the type
	c.LogLevel = LogLevelNotice
	c.Checkers = 8
	c.ConnectTimeout = 60 * time.Second
	c.Timeout = 5 * 60 * time.Second
	c.TPSLimitBurst = 1
	c.UserAgent = "drivemeta/" + Version

	return c
}

type configContextKeyType struct{}

// Context key for config
var configContextKey = configContextKeyType{}

// GetConfig returns the global or context sensitive context
func GetConfig(ctx context.Context) *ConfigInfo {
	if ctx == nil {
		return globalConfig
	}
	c := ctx.Value(configContextKey)
	if c == nil {
		return globalConfig
	}
	return c.(*ConfigInfo)
}

// AddConfig returns a mutable config structure based on a shallow
// copy of that found in ctx and returns a new context with that added
// to it.
func AddConfig(ctx context.Context) (context.Context, *ConfigInfo) {
	c := GetConfig(ctx)
	cCopy := new(ConfigInfo)
	*cCopy = *c
	newCtx := context.WithValue(ctx, configContextKey, cCopy)
	return newCtx, cCopy
}

// ConfigToEnv converts a config section and name, eg ("drive",
// "service_account_file") into an environment name
// "DRIVEMETA_DRIVE_SERVICE_ACCOUNT_FILE"
func ConfigToEnv(section, name string) string {
	return "DRIVEMETA_" + strings.ToUpper(strings.Replace(section+"_"+name, "-", "_", -1))
}

// OptionToEnv converts an option name, eg "use-json-log" into an
// environment name "DRIVEMETA_USE_JSON_LOG"
func OptionToEnv(name string) string {
	return "DRIVEMETA_" + strings.ToUpper(strings.Replace(name, "-", "_", -1))
}
