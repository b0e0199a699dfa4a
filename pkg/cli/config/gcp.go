package config

import (
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// GCP holds Google Cloud configuration shared by the storage and Firestore sinks
type GCP struct {
	CredentialsFile     string
	Bucket              string
	Prefix              string
	FirestoreProject    string
	FirestoreDatabaseID string
}

// Flags returns CLI flags for Google Cloud configuration
func (c *GCP) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gcp-credentials",
			Usage:       "Service account key file (application default credentials when empty)",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("PACKWELD_GCP_CREDENTIALS"),
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Upload weld outputs to this bucket",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("PACKWELD_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix for uploaded outputs",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("PACKWELD_GCS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Record weld jobs in Firestore of this project",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("PACKWELD_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Destination: &c.FirestoreDatabaseID,
			Sources:     cli.EnvVars("PACKWELD_FIRESTORE_DATABASE"),
		},
	}
}

// ClientOptions returns the options passed to Google Cloud clients
func (c *GCP) ClientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}
