package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"google.golang.org/api/option"
)

// Collection holds one document per welded job
const Collection = "weld_jobs"

// Client records weld results in Firestore
type Client struct {
	client *firestore.Client
}

// NewClient creates a Firestore result sink. An empty databaseID selects the
// default database.
func NewClient(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Client, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	fc, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	return &Client{client: fc}, nil
}

func (c *Client) Name() string {
	return "firestore"
}

// Publish stores the job record of result, replacing the record of a previous run
func (c *Client) Publish(ctx context.Context, result *model.WeldResult) error {
	record := model.NewJobRecord(result)
	if _, err := c.client.Collection(Collection).Doc(record.ID).Set(ctx, record); err != nil {
		return goerr.Wrap(err, "failed to save job record", goerr.V("job_id", record.ID))
	}
	return nil
}

// Close releases the underlying client
func (c *Client) Close() error {
	return c.client.Close()
}
