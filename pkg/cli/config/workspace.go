package config

import "github.com/urfave/cli/v3"

// Workspace holds the location of job directories
type Workspace struct {
	TempRoot string
}

// Flags returns CLI flags for workspace configuration
func (c *Workspace) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "temp-root",
			Usage:       "Directory holding one sub directory per job",
			Value:       "temp",
			Destination: &c.TempRoot,
			Sources:     cli.EnvVars("PACKWELD_TEMP_ROOT"),
		},
	}
}
