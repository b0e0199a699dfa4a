package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/infra/slack"
)

func TestClient_Publish(t *testing.T) {
	var received struct {
		Text string `json:"text"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := slack.NewClient(server.URL)
	gt.NoError(t, err)
	gt.Value(t, sink.Name()).Equal("slack")

	err = sink.Publish(context.Background(), &model.WeldResult{
		JobID:        "job1",
		Mode:         model.ModeDataPack,
		Version:      "1.21",
		ArchiveCount: 3,
		Files:        []string{model.DataPackFile},
	})
	gt.NoError(t, err)
	gt.String(t, received.Text).Contains("job1")
	gt.String(t, received.Text).Contains("3 archive(s)")
}

func TestClient_PublishFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := slack.NewClient(server.URL)
	gt.NoError(t, err)

	err = sink.Publish(context.Background(), &model.WeldResult{JobID: "job1", Files: []string{model.DataPackFile}})
	gt.Error(t, err)
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := slack.NewClient("")
	gt.Error(t, err)
}

func TestNewMessage(t *testing.T) {
	msg := slack.NewMessage(&model.WeldResult{
		JobID:   "job1",
		Mode:    model.ModeBoth,
		Version: "1.20.4",
		Files:   []string{model.ResourcePackFile, model.DataPackFile, model.BothFile},
	})

	gt.String(t, msg.Text).Contains("both")
	gt.String(t, msg.Text).Contains("1.20.4")
	gt.A(t, msg.Blocks.BlockSet).Length(2)
}
