package weld

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
)

// Kind distinguishes the two sides of a weld
type Kind int

const (
	KindResourcePack Kind = iota
	KindDataPack
)

func (k Kind) String() string {
	if k == KindDataPack {
		return "data_pack"
	}
	return "resource_pack"
}

// zipEpoch is stamped on every entry so identical input yields identical zips
var zipEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Pack is one merged output tree
type Pack struct {
	Name   string
	Kind   Kind
	Mcmeta *Mcmeta

	files       map[string][]byte
	sources     map[string]string // archive that last stored each path
	meta        *Meta
	formats     formatTable
	description string
}

func newPack(kind Kind, meta *Meta, formats formatTable, description string) *Pack {
	name := "welded_resource_pack"
	if kind == KindDataPack {
		name = "welded_data_pack"
	}

	return &Pack{
		Name:        name,
		Kind:        kind,
		Mcmeta:      newMcmeta(),
		files:       map[string][]byte{},
		sources:     map[string]string{},
		meta:        meta,
		formats:     formats,
		description: description,
	}
}

// Len returns the number of files in the pack, pack.mcmeta excluded
func (p *Pack) Len() int {
	return len(p.files)
}

// Files returns the sorted file paths of the pack, pack.mcmeta excluded
func (p *Pack) Files() []string {
	return slices.Sorted(maps.Keys(p.files))
}

// File returns the content stored at path
func (p *Pack) File(path string) ([]byte, bool) {
	data, ok := p.files[path]
	return data, ok
}

func (p *Pack) put(ctx context.Context, source, path string, content []byte) error {
	existing, ok := p.files[path]
	if !ok {
		p.store(source, path, content)
		return nil
	}

	merge := mergerFor(p.Kind, path)
	if merge == nil {
		logging.From(ctx).Debug("Overwriting conflicting file",
			"pack", p.Kind.String(),
			"path", path,
			"archive", source,
		)
		p.store(source, path, content)
		return nil
	}

	merged, err := merge(existing, content)
	if err != nil {
		culprit := source
		if !json.Valid(existing) {
			culprit = p.sources[path]
		}
		return goerr.Wrap(ErrInvalidJSON, "failed to merge pack file",
			goerr.V("archive", culprit),
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}
	p.store(source, path, merged)
	return nil
}

func (p *Pack) store(source, path string, content []byte) {
	p.files[path] = content
	p.sources[path] = source
}

func (p *Pack) release() {
	p.files = nil
	p.sources = nil
}

// ResolvedMcmeta returns the pack.mcmeta written on save, with pack_format
// derived from the "minecraft" metadata when the version is known.
func (p *Pack) ResolvedMcmeta() *Mcmeta {
	out := newMcmeta()
	maps.Copy(out.Pack, p.Mcmeta.Pack)
	maps.Copy(out.Sections, p.Mcmeta.Sections)

	if version, ok := p.meta.Get(MetaMinecraft); ok {
		if format, ok := p.formats.lookup(version, p.Kind); ok {
			out.Pack["pack_format"] = format
		}
	}
	if _, ok := out.Pack["pack_format"]; !ok {
		out.Pack["pack_format"] = 0
	}

	switch {
	case p.description != "":
		out.Pack["description"] = p.description
	case out.Pack["description"] == nil:
		out.Pack["description"] = defaultDescription
	}

	return out
}

// SaveOptions controls Pack.Save
type SaveOptions struct {
	Zipped    bool
	Overwrite bool
}

// Save writes the pack into dir, as <Name>.zip when zipped or as the
// directory <Name> otherwise, and returns the written path.
func (p *Pack) Save(dir string, opts SaveOptions) (string, error) {
	if p.files == nil {
		return "", goerr.Wrap(ErrContextClosed, "cannot save pack", goerr.V("name", p.Name))
	}

	target := filepath.Join(dir, p.Name)
	if opts.Zipped {
		target += ".zip"
	}

	if _, err := os.Stat(target); err == nil {
		if !opts.Overwrite {
			return "", goerr.Wrap(ErrAlreadyExists, "refusing to overwrite pack", goerr.V("path", target))
		}
		if err := os.RemoveAll(target); err != nil {
			return "", goerr.Wrap(err, "failed to remove previous output", goerr.V("path", target))
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", goerr.Wrap(err, "failed to stat output", goerr.V("path", target))
	}

	mcmeta, err := p.ResolvedMcmeta().marshal()
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode pack.mcmeta")
	}

	if opts.Zipped {
		err = p.writeZip(target, mcmeta)
	} else {
		err = p.writeDir(target, mcmeta)
	}
	if err != nil {
		return "", err
	}

	return target, nil
}

func (p *Pack) writeZip(target string, mcmeta []byte) (err error) {
	f, err := os.Create(target)
	if err != nil {
		return goerr.Wrap(err, "failed to create pack archive", goerr.V("path", target))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "failed to close pack archive", goerr.V("path", target))
		}
	}()

	zw := zip.NewWriter(f)
	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return goerr.Wrap(err, "failed to create zip entry", goerr.V("entry", name))
		}
		if _, err := w.Write(data); err != nil {
			return goerr.Wrap(err, "failed to write zip entry", goerr.V("entry", name))
		}
		return nil
	}

	if err := write(mcmetaFile, mcmeta); err != nil {
		return err
	}
	for _, name := range p.Files() {
		if err := write(name, p.files[name]); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize pack archive", goerr.V("path", target))
	}
	return nil
}

func (p *Pack) writeDir(target string, mcmeta []byte) error {
	write := func(name string, data []byte) error {
		dest := filepath.Join(target, filepath.FromSlash(name))
		if !strings.HasPrefix(dest, filepath.Clean(target)+string(os.PathSeparator)) {
			return goerr.New("pack file escapes output directory", goerr.V("file", name), goerr.V("dest", dest))
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return goerr.Wrap(err, "failed to create pack directory", goerr.V("path", dest))
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return goerr.Wrap(err, "failed to write pack file", goerr.V("path", dest))
		}
		return nil
	}

	if err := write(mcmetaFile, mcmeta); err != nil {
		return err
	}
	for _, name := range p.Files() {
		if err := write(name, p.files[name]); err != nil {
			return err
		}
	}
	return nil
}
