package site

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrNotFound is returned by a Source when no candidate file exists.
var ErrNotFound = errors.New("asset not found")

// Asset is an open static file. Body must be closed by the caller.
type Asset struct {
	Name    string // resolved name, used for content-type detection
	Body    io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

// Source is where the pre-built site is read from.
type Source interface {
	Open(ctx context.Context, name string) (*Asset, error)
}

// Candidates maps a request path to the slash-separated relative names to try,
// in order: the exact file, then "<name>.html", then "<name>/index.html".
// Clean-URL pages such as /tos are built as tos.html.
func Candidates(name string) []string {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		return []string{"index.html"}
	}
	if strings.HasSuffix(name, "/") {
		return []string{path.Join(clean, "index.html")}
	}
	if path.Ext(clean) != "" {
		return []string{clean}
	}
	return []string{clean, clean + ".html", path.Join(clean, "index.html")}
}

// DirSource serves files below a local directory, typically the build output.
type DirSource struct {
	Root string
}

func (d DirSource) Open(ctx context.Context, name string) (*Asset, error) {
	for _, cand := range Candidates(name) {
		f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(cand)))
		if err != nil {
			// a file in a directory position (tos.html/index.html) is ENOTDIR
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				continue
			}
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if fi.IsDir() {
			_ = f.Close()
			continue
		}
		return &Asset{Name: cand, Body: f, Size: fi.Size(), ModTime: fi.ModTime()}, nil
	}
	return nil, ErrNotFound
}
