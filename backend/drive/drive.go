// Package drive reads file and folder metadata from Google Drive
package drive

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/drivemeta/drivemeta/fs"
	"github.com/drivemeta/drivemeta/fs/config/configmap"
	"github.com/drivemeta/drivemeta/fs/config/configstruct"
	"github.com/drivemeta/drivemeta/fs/fserrors"
	"github.com/drivemeta/drivemeta/fs/fshttp"
	"github.com/drivemeta/drivemeta/lib/cache"
	"github.com/drivemeta/drivemeta/lib/env"
	"github.com/drivemeta/drivemeta/lib/workers"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Constants
const (
	driveFolderType        = "application/vnd.google-apps.folder"
	timeFormatIn           = time.RFC3339
	serviceAccountFileName = "client_secrets.json"
	statFields             = "id,name,size,createdTime,mimeType,parents,imageMediaMetadata/height"
	mainClientKey          = "main"
	defaultPacerCalls      = 20000
	defaultPacerPeriod     = fs.Duration(100 * time.Second)
	defaultMaxDepth        = 64
	defaultFolderCacheTime = fs.Duration(time.Hour)
)

// Read only scopes used for every client
var driveScopes = []string{
	drive.DriveMetadataReadonlyScope,
	drive.DriveReadonlyScope,
}

// Options defines the configuration for this backend
type Options struct {
	ServiceAccountFile        string      `config:"service_account_file" help:"Service account credentials JSON file path. Leave blank to use client_secrets.json three directories above the executable."`
	ServiceAccountCredentials string      `config:"service_account_credentials" help:"Service account credentials JSON blob. Takes precedence over service_account_file."`
	Impersonate               string      `config:"impersonate" help:"Impersonate this user when using a service account."`
	PacerCalls                int         `config:"pacer_calls" help:"Maximum number of API calls in any pacer_period."`
	PacerPeriod               fs.Duration `config:"pacer_period" help:"Length of the sliding window for pacer_calls."`
	MaxConnections            int         `config:"max_connections" help:"Maximum number of simultaneous API calls, 0 for unlimited."`
	MaxDepth                  int         `config:"max_depth" help:"Maximum number of ancestors to resolve for a folder."`
	FolderCacheTime           fs.Duration `config:"folder_cache_time" help:"How long resolved folders are remembered."`
	Endpoint                  string      `config:"endpoint" help:"Override the Drive API endpoint URL."`
}

// DefaultOptions returns the options with their default values
func DefaultOptions() Options {
	return Options{
		PacerCalls:      defaultPacerCalls,
		PacerPeriod:     defaultPacerPeriod,
		MaxDepth:        defaultMaxDepth,
		FolderCacheTime: defaultFolderCacheTime,
	}
}

// Fs represents a connection to Google Drive
type Fs struct {
	name     string                       // name of this remote
	opt      Options                      // parsed options
	ci       *fs.ConfigInfo               // global config
	clients  *cache.Cache[*drive.Service] // one authorized service per worker
	exec     *Executor                    // paces every API call
	folders  *gocache.Cache               // resolved folders by ID
	readFile func(name string) ([]byte, error)
}

// NewFs constructs an Fs from the config in m
func NewFs(ctx context.Context, name string, m configmap.Getter) (*Fs, error) {
	// Parse config into Options struct
	opt := DefaultOptions()
	err := configstruct.Set(m, &opt)
	if err != nil {
		return nil, err
	}
	if opt.MaxDepth < 1 {
		return nil, errors.Errorf("drive: max_depth must be at least 1, got %d", opt.MaxDepth)
	}
	exec, err := NewExecutor(opt.PacerCalls, time.Duration(opt.PacerPeriod), opt.MaxConnections)
	if err != nil {
		return nil, errors.Wrap(err, "drive")
	}
	f := &Fs{
		name:     name,
		opt:      opt,
		ci:       fs.GetConfig(ctx),
		clients:  cache.New[*drive.Service](name + "_clients"),
		exec:     exec,
		folders:  gocache.New(time.Duration(opt.FolderCacheTime), 10*time.Minute),
		readFile: os.ReadFile,
	}
	fs.Debugf(f, "Pacing API calls to %d per %v", opt.PacerCalls, opt.PacerPeriod)
	return f, nil
}

// Name of the remote (as passed into NewFs)
func (f *Fs) Name() string {
	return f.name
}

// String converts this Fs to a string
func (f *Fs) String() string {
	return "Google drive " + f.name
}

// Executor returns the executor pacing this Fs's API calls
func (f *Fs) Executor() *Executor {
	return f.exec
}

// credentials returns the service account JSON
func (f *Fs) credentials() ([]byte, error) {
	if f.opt.ServiceAccountCredentials != "" {
		return []byte(f.opt.ServiceAccountCredentials), nil
	}
	path := f.opt.ServiceAccountFile
	if path == "" {
		root, err := env.InstallRoot()
		if err != nil {
			return nil, errors.Wrap(err, "couldn't find the executable")
		}
		path = filepath.Join(root, serviceAccountFileName)
	}
	path = env.ShellExpand(path)
	fs.Debugf(f, "Loading service account credentials from %q", path)
	data, err := f.readFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening service account credentials file")
	}
	return data, nil
}

// newService makes a new authorized Drive service
func (f *Fs) newService(ctx context.Context) (*drive.Service, error) {
	credentialsData, err := f.credentials()
	if err != nil {
		return nil, fserrors.FatalError(err)
	}
	conf, err := google.JWTConfigFromJSON(credentialsData, driveScopes...)
	if err != nil {
		return nil, fserrors.FatalError(errors.Wrap(err, "error processing credentials"))
	}
	if f.opt.Impersonate != "" {
		conf.Subject = f.opt.Impersonate
	}
	// The token source outlives ctx so it gets its own
	ctxWithSpecialClient := context.WithValue(context.Background(), oauth2.HTTPClient, fshttp.NewClient(f.ci))
	client := oauth2.NewClient(ctxWithSpecialClient, conf.TokenSource(ctxWithSpecialClient))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.opt.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.opt.Endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create Drive client")
	}
	return svc, nil
}

// Client returns the Drive service for the worker running ctx,
// creating it on first use.  Calls without a worker identity share
// one client.
func (f *Fs) Client(ctx context.Context) (*drive.Service, error) {
	key := workers.ID(ctx)
	if key == "" {
		key = mainClientKey
	}
	return f.clients.Get(key, func(key string) (*drive.Service, error) {
		fs.Debugf(f, "Creating client for worker %q", key)
		return f.newService(ctx)
	})
}

// ReleaseClient forgets the client made for worker id
func (f *Fs) ReleaseClient(id string) {
	if f.clients.Delete(id) {
		fs.Debugf(f, "Released client for worker %q", id)
	}
}
