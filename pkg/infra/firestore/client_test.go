package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/infra/firestore"
)

func TestNewClient_RequiresProject(t *testing.T) {
	_, err := firestore.NewClient(context.Background(), "", "")
	gt.Error(t, err)
}

func TestClient_PublishAndGet(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID is not set")
	}

	ctx := context.Background()
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		databaseID = gcfirestore.DefaultDatabaseID
	}

	client, err := firestore.NewClient(ctx, projectID, databaseID)
	gt.NoError(t, err)
	defer client.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	result := &model.WeldResult{
		JobID:        "test-" + uuid.NewString(),
		Mode:         model.ModeBoth,
		Version:      "1.21",
		ArchiveCount: 2,
		Files:        []string{model.ResourcePackFile, model.DataPackFile, model.BothFile},
		StartedAt:    now,
		FinishedAt:   now.Add(time.Second),
	}

	gt.NoError(t, client.Publish(ctx, result))

	reader, err := gcfirestore.NewClientWithDatabase(ctx, projectID, databaseID)
	gt.NoError(t, err)
	defer reader.Close()

	doc, err := reader.Collection(firestore.Collection).Doc(result.JobID).Get(ctx)
	gt.NoError(t, err)

	var record model.JobRecord
	gt.NoError(t, doc.DataTo(&record))
	gt.Value(t, record.Mode).Equal(string(model.ModeBoth))
	gt.Value(t, record.ArchiveCount).Equal(2)
	gt.Value(t, record.Files).Equal(result.Files)
}
