package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/slack-go/slack"
)

type client struct {
	webhookURL string
}

// NewClient creates a result sink posting a summary to a Slack incoming webhook
func NewClient(webhookURL string) (interfaces.ResultSink, error) {
	if webhookURL == "" {
		return nil, goerr.New("webhook URL is required")
	}
	return &client{webhookURL: webhookURL}, nil
}

func (c *client) Name() string {
	return "slack"
}

func (c *client) Publish(ctx context.Context, result *model.WeldResult) error {
	if err := slack.PostWebhookContext(ctx, c.webhookURL, NewMessage(result)); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("job_id", result.JobID))
	}
	return nil
}

// NewMessage builds the notification for result
func NewMessage(result *model.WeldResult) *slack.WebhookMessage {
	summary := fmt.Sprintf("Welded %d archive(s) for job `%s` (%s, %s)",
		result.ArchiveCount, result.JobID, result.Mode, result.Version)

	files := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, "`"+f+"`")
	}

	return &slack.WebhookMessage{
		Text: summary,
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, summary, false, false), nil, nil),
				slack.NewContextBlock("",
					slack.NewTextBlockObject(slack.MarkdownType, "Outputs: "+strings.Join(files, ", "), false, false),
				),
			},
		},
	}
}
