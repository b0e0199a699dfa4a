package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr   string
	JobTTL time.Duration
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("PACKWELD_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "job-ttl",
			Usage:       "Remove job directories not modified for this long (0 keeps them)",
			Value:       time.Hour,
			Destination: &c.JobTTL,
			Sources:     cli.EnvVars("PACKWELD_JOB_TTL"),
		},
	}
}
