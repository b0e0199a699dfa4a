package config_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/packweld/pkg/cli/config"
)

func TestLogger_Configure(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		wantErr bool
	}{
		{level: "debug", debug: true},
		{level: "INFO"},
		{level: "Warn"},
		{level: "error"},
		{level: "verbose", wantErr: true},
		{level: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := (&config.Logger{Level: tt.level, Output: &buf}).Configure()
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)

			logger.Debug("weld details")
			gt.Value(t, strings.Contains(buf.String(), "weld details")).Equal(tt.debug)
		})
	}
}

func TestLogger_Configure_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := (&config.Logger{Level: "info", JSON: true, Output: &buf}).Configure()
	gt.NoError(t, err)

	logger.Info("weld completed", "job_id", "job1")

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Value(t, record["msg"]).Equal(any("weld completed"))
	gt.Value(t, record["job_id"]).Equal(any("job1"))
}

func TestLogger_Configure_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, err := (&config.Logger{Level: "info", JSON: true, Output: &buf}).Configure()
	gt.NoError(t, err)

	logger.Info("config loaded", "slack", config.Slack{WebhookURL: "https://hooks.slack.com/services/T000/B000/XXXX"})

	gt.False(t, strings.Contains(buf.String(), "hooks.slack.com"))
}

func TestLogger_Flags(t *testing.T) {
	var names []string
	for _, f := range (&config.Logger{}).Flags() {
		if named, ok := f.(interface{ Names() []string }); ok {
			names = append(names, named.Names()[0])
		}
	}
	gt.Value(t, names).Equal([]string{"log-level", "log-json"})
}
