package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/weld"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Weld holds weld engine configuration
type Weld struct {
	ConfigFile       string
	AllowUnknownMode bool
	AsyncSinks       bool
}

// weldFile is the layout of the TOML file given by --weld-config
type weldFile struct {
	Require     []string                    `toml:"require"`
	Description string                      `toml:"description"`
	Meta        map[string]string           `toml:"meta"`
	PackFormats map[string]weld.PackFormats `toml:"pack_formats"`
}

// Flags returns CLI flags for weld configuration
func (c *Weld) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "weld-config",
			Usage:       "TOML file with weld options (require, description, meta, pack_formats)",
			Destination: &c.ConfigFile,
			Sources:     cli.EnvVars("PACKWELD_WELD_CONFIG"),
		},
		&cli.BoolFlag{
			Name:        "allow-unknown-mode",
			Usage:       "Treat an unknown mode as a no-op instead of an error",
			Destination: &c.AllowUnknownMode,
			Sources:     cli.EnvVars("PACKWELD_ALLOW_UNKNOWN_MODE"),
		},
		&cli.BoolFlag{
			Name:        "async-sinks",
			Usage:       "Publish weld results to sinks in the background",
			Destination: &c.AsyncSinks,
			Sources:     cli.EnvVars("PACKWELD_ASYNC_SINKS"),
		},
	}
}

// Options loads the weld options. Without a config file the zero options are
// returned.
func (c *Weld) Options() (weld.Options, error) {
	if c.ConfigFile == "" {
		return weld.Options{}, nil
	}

	raw, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return weld.Options{}, goerr.Wrap(err, "failed to read weld config", goerr.V("path", c.ConfigFile))
	}

	return ParseWeldOptions(raw)
}

// ParseWeldOptions decodes TOML weld options
func ParseWeldOptions(raw []byte) (weld.Options, error) {
	var f weldFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return weld.Options{}, goerr.Wrap(err, "failed to parse weld config")
	}

	opts := weld.Options{
		Require:     f.Require,
		Description: f.Description,
		Meta:        f.Meta,
		PackFormats: f.PackFormats,
	}
	if err := opts.Validate(); err != nil {
		return weld.Options{}, err
	}
	return opts, nil
}
