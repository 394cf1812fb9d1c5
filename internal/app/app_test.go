package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gemini-relay/internal/config"
)

func TestNeedsAWS(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{name: "env secrets, memory history", cfg: config.Config{TelegramToken: "tg", GeminiAPIKey: "gm"}},
		{name: "prefix but nothing missing", cfg: config.Config{TelegramToken: "tg", GeminiAPIKey: "gm", ParamPrefix: "/relay"}},
		{name: "secrets from ssm", cfg: config.Config{ParamPrefix: "/relay", TelegramToken: "tg"}, want: true},
		{name: "dynamo history", cfg: config.Config{TelegramToken: "tg", GeminiAPIKey: "gm", HistoryTable: "t"}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NeedsAWS(tc.cfg))
		})
	}
}
