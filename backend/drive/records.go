package drive

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	drive "google.golang.org/api/drive/v3"
)

// pathSeparator joins folder names in FullPath
const pathSeparator = " / "

// Folder is a Drive folder.  Parent is nil for a root folder.
type Folder struct {
	ID     string
	Name   string
	Parent *Folder
}

// NewFolder makes a Folder
func NewFolder(id, name string, parent *Folder) *Folder {
	return &Folder{
		ID:     id,
		Name:   name,
		Parent: parent,
	}
}

// String returns the full path of the folder
func (f *Folder) String() string {
	return f.FullPath()
}

// FullPath returns the names of the folder's ancestors and itself
// from the root down, eg "Root / Sub / Leaf"
func (f *Folder) FullPath() string {
	var names []string
	for folder := f; folder != nil; folder = folder.Parent {
		names = append(names, folder.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, pathSeparator)
}

// TopLevelFolder returns the root of the folder's tree, which is the
// folder itself if it has no parent
func (f *Folder) TopLevelFolder() *Folder {
	folder := f
	for folder.Parent != nil {
		folder = folder.Parent
	}
	return folder
}

type folderJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Path     string `json:"path"`
	TopLevel string `json:"topLevel"`
}

// MarshalJSON encodes the folder with its path
func (f *Folder) MarshalJSON() ([]byte, error) {
	out := folderJSON{
		ID:       f.ID,
		Name:     f.Name,
		Path:     f.FullPath(),
		TopLevel: f.TopLevelFolder().Name,
	}
	if f.Parent != nil {
		out.ParentID = f.Parent.ID
	}
	return json.Marshal(out)
}

// Depth returns the number of ancestors of the folder
func (f *Folder) Depth() (depth int) {
	for folder := f.Parent; folder != nil; folder = folder.Parent {
		depth++
	}
	return depth
}

// Image describes a file stored in Drive
type Image struct {
	id          string
	name        string
	size        int64
	createdTime time.Time
	height      int64
	folder      *Folder
}

// NewImage makes an Image from the Drive metadata in info.  folder may
// be nil if the containing folder isn't known.
func NewImage(info *drive.File, folder *Folder) (*Image, error) {
	if info == nil {
		return nil, errors.New("no file info")
	}
	img := &Image{
		id:     info.Id,
		name:   info.Name,
		size:   info.Size,
		folder: folder,
	}
	if info.CreatedTime != "" {
		createdTime, err := time.Parse(timeFormatIn, info.CreatedTime)
		if err != nil {
			return nil, errors.Wrapf(err, "bad created time for %q", info.Id)
		}
		img.createdTime = createdTime
	}
	if info.ImageMediaMetadata != nil {
		img.height = info.ImageMediaMetadata.Height
	}
	return img, nil
}

// ID of the image
func (i *Image) ID() string { return i.id }

// Name of the image
func (i *Image) Name() string { return i.name }

// Size of the image in bytes
func (i *Image) Size() int64 { return i.size }

// CreatedTime is when the image was uploaded
func (i *Image) CreatedTime() time.Time { return i.createdTime }

// Height of the image in pixels, 0 if unknown
func (i *Image) Height() int64 { return i.height }

// Folder containing the image, may be nil
func (i *Image) Folder() *Folder { return i.folder }

// String returns the image name
func (i *Image) String() string {
	return i.name
}

type imageJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedTime time.Time `json:"createdTime"`
	Height      int64     `json:"height"`
	FolderID    string    `json:"folderId,omitempty"`
	Folder      string    `json:"folder,omitempty"`
}

// MarshalJSON encodes the image with its folder as a path
func (i *Image) MarshalJSON() ([]byte, error) {
	out := imageJSON{
		ID:          i.id,
		Name:        i.name,
		Size:        i.size,
		CreatedTime: i.createdTime,
		Height:      i.height,
	}
	if i.folder != nil {
		out.FolderID = i.folder.ID
		out.Folder = i.folder.FullPath()
	}
	return json.Marshal(out)
}
