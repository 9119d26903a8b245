package drive

import (
	"context"

	"github.com/drivemeta/drivemeta/fs"
	"github.com/pkg/errors"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Errors returned when resolving metadata
var (
	ErrorIsFolder      = errors.New("is a folder not an image")
	ErrorNotFolder     = errors.New("not a folder")
	ErrorFolderCycle   = errors.New("folder is its own ancestor")
	ErrorFolderTooDeep = errors.New("folder has too many ancestors")
)

// Stat reads the metadata for the file or folder id.
//
// It returns nil, nil if Drive answered with an HTTP error, eg the
// file doesn't exist or can't be seen.
func (f *Fs) Stat(ctx context.Context, id string) (*drive.File, error) {
	svc, err := f.Client(ctx)
	if err != nil {
		return nil, err
	}
	call := svc.Files.Get(id).
		Fields(googleapi.Field(statFields)).
		SupportsAllDrives(true).
		Context(ctx)
	return Execute[*drive.File](ctx, f.exec, call)
}

// Folder resolves the folder id and its ancestors.
//
// Resolved folders are remembered so folders with a common ancestor
// share it.  A folder whose parent can't be read is treated as a root.
// It returns nil, nil if the folder itself can't be read.
func (f *Fs) Folder(ctx context.Context, id string) (*Folder, error) {
	return f.resolveFolder(ctx, id, nil)
}

// resolveFolder resolves id using info for it if not nil
func (f *Fs) resolveFolder(ctx context.Context, id string, info *drive.File) (*Folder, error) {
	var (
		chain   []*drive.File // unresolved folders, leaf first
		seen    = map[string]struct{}{}
		parent  *Folder
		current = id
	)
	for {
		if cached, found := f.folders.Get(current); found {
			parent = cached.(*Folder)
			if len(chain) > 0 && len(chain)+parent.Depth() > f.opt.MaxDepth {
				return nil, errors.Wrapf(ErrorFolderTooDeep, "resolving %q: more than %d ancestors", id, f.opt.MaxDepth)
			}
			break
		}
		if _, found := seen[current]; found {
			return nil, errors.Wrapf(ErrorFolderCycle, "resolving %q at %q", id, current)
		}
		// chain holds id and len(chain)-1 of its ancestors
		if len(chain) > f.opt.MaxDepth {
			return nil, errors.Wrapf(ErrorFolderTooDeep, "resolving %q: more than %d ancestors", id, f.opt.MaxDepth)
		}
		seen[current] = struct{}{}
		if info == nil || info.Id != current {
			var err error
			info, err = f.Stat(ctx, current)
			if err != nil {
				return nil, err
			}
		}
		if info == nil {
			if len(chain) == 0 {
				return nil, nil
			}
			fs.Debugf(f, "Parent %q of %q unavailable - treating %q as a root", current, id, chain[len(chain)-1].Id)
			break
		}
		if info.MimeType != driveFolderType {
			if len(chain) == 0 {
				return nil, errors.Wrapf(ErrorNotFolder, "%q is %q", id, info.MimeType)
			}
			fs.Debugf(f, "Parent %q of %q is not a folder - treating %q as a root", current, id, chain[len(chain)-1].Id)
			break
		}
		chain = append(chain, info)
		if len(info.Parents) == 0 {
			break
		}
		current = info.Parents[0]
	}
	// Link the chain from the top down
	for i := len(chain) - 1; i >= 0; i-- {
		folder := NewFolder(chain[i].Id, chain[i].Name, parent)
		f.folders.SetDefault(folder.ID, folder)
		parent = folder
	}
	return parent, nil
}

// Image reads the metadata for the file id and resolves its folder.
//
// It returns nil, nil if the file can't be read.  If the containing
// folder can't be read the image has no folder.
func (f *Fs) Image(ctx context.Context, id string) (*Image, error) {
	info, err := f.Stat(ctx, id)
	if err != nil || info == nil {
		return nil, err
	}
	if info.MimeType == driveFolderType {
		return nil, errors.Wrapf(ErrorIsFolder, "%q", id)
	}
	return f.newImage(ctx, info)
}

// newImage makes an Image from info, resolving its folder
func (f *Fs) newImage(ctx context.Context, info *drive.File) (*Image, error) {
	var folder *Folder
	if len(info.Parents) > 0 {
		var err error
		folder, err = f.Folder(ctx, info.Parents[0])
		if err != nil {
			return nil, err
		}
	}
	return NewImage(info, folder)
}

// Lookup reads id and returns its Folder if it is a folder or its
// Image otherwise.  Both are nil if it can't be read.
func (f *Fs) Lookup(ctx context.Context, id string) (folder *Folder, img *Image, err error) {
	info, err := f.Stat(ctx, id)
	if err != nil || info == nil {
		return nil, nil, err
	}
	if info.MimeType == driveFolderType {
		folder, err = f.resolveFolder(ctx, id, info)
		return folder, nil, err
	}
	img, err = f.newImage(ctx, info)
	return nil, img, err
}

// FolderCacheFlush forgets all resolved folders
func (f *Fs) FolderCacheFlush() {
	f.folders.Flush()
}
