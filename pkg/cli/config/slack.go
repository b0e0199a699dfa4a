package config

import "github.com/urfave/cli/v3"

// Slack holds Slack notification configuration
type Slack struct {
	WebhookURL string `masq:"secret"`
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Post weld summaries to this incoming webhook",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("PACKWELD_SLACK_WEBHOOK_URL"),
		},
	}
}
