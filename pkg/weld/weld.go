package weld

import (
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
)

const (
	// PluginUnknownFiles keeps files that are neither pack metadata nor part of
	// the assets/ or data/ trees.
	PluginUnknownFiles = "unknown_files"

	// MetaMinecraft is the metadata key holding the targeted game version.
	MetaMinecraft = "minecraft"

	defaultDescription = "Welded pack"
)

var (
	ErrInvalidArchive = goerr.New("invalid pack archive")
	ErrInvalidJSON    = goerr.New("invalid JSON in pack file")
	ErrUnknownPlugin  = goerr.New("unknown weld plugin")
	ErrContextClosed  = goerr.New("weld context is closed")
	ErrAlreadyExists  = goerr.New("output already exists")
)

// pluginAliases maps accepted plugin names to their canonical name
var pluginAliases = map[string]string{
	PluginUnknownFiles:           PluginUnknownFiles,
	"beet.contrib.unknown_files": PluginUnknownFiles,
}

// Options configures a weld run
type Options struct {
	// Require lists plugins enabled for the run
	Require []string

	// Meta seeds the context metadata before merging
	Meta map[string]string

	// Description overrides the pack description of both outputs
	Description string

	// PackFormats extends or overrides the built-in version table
	PackFormats map[string]PackFormats
}

func (o Options) requires(plugin string) bool {
	for _, name := range o.Require {
		if pluginAliases[name] == plugin {
			return true
		}
	}
	return false
}

// Validate checks that every required plugin is known
func (o Options) Validate() error {
	for _, name := range o.Require {
		if _, ok := pluginAliases[name]; !ok {
			return goerr.Wrap(ErrUnknownPlugin, "plugin is not supported", goerr.V("plugin", name))
		}
	}
	return nil
}

// Context holds the result of a weld run. It must be closed after use.
type Context struct {
	Assets *Pack
	Data   *Pack
	Meta   *Meta

	options Options
	closed  bool
}

// Engine runs welds. The zero value is ready to use.
type Engine struct{}

// Run merges archives with the package level Run
func (Engine) Run(ctx context.Context, archives []Archive, opts Options) (*Context, error) {
	return Run(ctx, archives, opts)
}

// Run merges archives in order into a resource pack and a data pack
func Run(ctx context.Context, archives []Archive, opts Options) (*Context, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := logging.From(ctx)

	meta := newMeta(opts.Meta)
	formats := defaultPackFormats.with(opts.PackFormats)

	wctx := &Context{
		Meta:    meta,
		options: opts,
	}
	wctx.Assets = newPack(KindResourcePack, meta, formats, opts.Description)
	wctx.Data = newPack(KindDataPack, meta, formats, opts.Description)

	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "weld cancelled")
		}

		logger.Debug("Welding archive", "archive", archive.Name, "entries", len(archive.Reader.File))
		if err := wctx.add(ctx, archive); err != nil {
			return nil, err
		}
	}

	logger.Debug("Weld finished",
		"archives", len(archives),
		"assets_files", wctx.Assets.Len(),
		"data_files", wctx.Data.Len(),
	)

	return wctx, nil
}

// Close releases merged content. Calling Close more than once is a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.Assets.release()
	c.Data.release()
	return nil
}

func (c *Context) add(ctx context.Context, archive Archive) error {
	entries, err := readEntries(archive)
	if err != nil {
		return err
	}

	var sides []*Pack
	if slices.ContainsFunc(entries, func(e entry) bool { return isUnder(e.path, assetsRoot) }) {
		sides = append(sides, c.Assets)
	}
	if slices.ContainsFunc(entries, func(e entry) bool { return isUnder(e.path, dataRoot) }) {
		sides = append(sides, c.Data)
	}
	if len(sides) == 0 {
		sides = append(sides, c.Data)
	}

	logger := logging.From(ctx)

	for _, e := range entries {
		switch {
		case e.path == mcmetaFile:
			mcmeta, err := parseMcmeta(e.content)
			if err != nil {
				return goerr.Wrap(ErrInvalidJSON, "failed to parse pack.mcmeta",
					goerr.V("archive", archive.Name),
					goerr.V("error", err.Error()),
				)
			}
			for _, p := range sides {
				p.Mcmeta.merge(mcmeta)
			}

		case e.path == iconFile:
			for _, p := range sides {
				if _, ok := p.files[iconFile]; !ok {
					p.store(archive.Name, iconFile, e.content)
				}
			}

		case isUnder(e.path, assetsRoot):
			if err := c.Assets.put(ctx, archive.Name, e.path, e.content); err != nil {
				return err
			}

		case isUnder(e.path, dataRoot):
			if err := c.Data.put(ctx, archive.Name, e.path, e.content); err != nil {
				return err
			}

		default:
			if !c.options.requires(PluginUnknownFiles) {
				logger.Debug("Dropping unknown file", "archive", archive.Name, "path", e.path)
				continue
			}
			for _, p := range sides {
				if err := p.put(ctx, archive.Name, e.path, e.content); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// Meta is string metadata attached to a weld context
type Meta struct {
	values map[string]string
}

func newMeta(seed map[string]string) *Meta {
	m := &Meta{values: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.values[k] = v
	}
	return m
}

// Get returns the value stored under key
func (m *Meta) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value
func (m *Meta) Set(key, value string) {
	m.values[key] = value
}

// SetDefault stores value under key only if key is absent and returns the
// value in effect afterwards.
func (m *Meta) SetDefault(key, value string) string {
	if v, ok := m.values[key]; ok {
		return v
	}
	m.values[key] = value
	return value
}
