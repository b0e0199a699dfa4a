package weld

import (
	"archive/zip"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const (
	mcmetaFile = "pack.mcmeta"
	iconFile   = "pack.png"
	assetsRoot = "assets"
	dataRoot   = "data"
)

// Archive is a zip archive to be welded
type Archive struct {
	Name   string
	Reader *zip.Reader
}

// ArchiveFile is an Archive opened from disk
type ArchiveFile struct {
	Archive
	rc *zip.ReadCloser
}

// OpenArchive opens the zip file at path. The caller must Close it.
func OpenArchive(path string) (*ArchiveFile, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidArchive, "failed to open zip archive",
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}

	return &ArchiveFile{
		Archive: Archive{
			Name:   filepath.Base(path),
			Reader: &rc.Reader,
		},
		rc: rc,
	}, nil
}

// Close closes the underlying file
func (a *ArchiveFile) Close() error {
	return a.rc.Close()
}

type entry struct {
	path    string
	content []byte
}

// readEntries loads every regular file of the archive, relative to the pack
// root and sorted by path.
func readEntries(archive Archive) ([]entry, error) {
	prefix := packRoot(archive.Reader)

	var entries []entry
	for _, f := range archive.Reader.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		name := strings.TrimPrefix(f.Name, prefix)
		if prefix != "" && name == f.Name {
			// Outside of the nested pack root
			continue
		}

		content, err := readFile(f)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidArchive, "failed to read archive entry",
				goerr.V("archive", archive.Name),
				goerr.V("entry", f.Name),
				goerr.V("error", err.Error()),
			)
		}

		entries = append(entries, entry{path: name, content: content})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].path < entries[j].path
	})

	return entries, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// packRoot returns the directory prefix holding pack.mcmeta when the archive
// wraps the whole pack in a single top-level directory, as GitHub zipballs do.
func packRoot(r *zip.Reader) string {
	var nested []string
	for _, f := range r.File {
		if f.Name == mcmetaFile {
			return ""
		}

		dir, base := splitFirst(f.Name)
		if base == mcmetaFile {
			nested = append(nested, dir+"/")
		}
	}

	if len(nested) == 1 {
		return nested[0]
	}
	return ""
}

func splitFirst(name string) (string, string) {
	idx := strings.Index(name, "/")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

func isUnder(path, root string) bool {
	return strings.HasPrefix(path, root+"/")
}
