package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tapline.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TAPLINE_TEST_TOKEN", "secret-token")

	path := writeConfig(t, `
version: "1"
agent:
  url: ws://localhost:9000/agent
  token: ${TAPLINE_TEST_TOKEN}
gateway:
  bind: ${TAPLINE_TEST_BIND:-127.0.0.1:8377}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Token != "secret-token" {
		t.Errorf("Agent.Token = %q, want expanded env value", cfg.Agent.Token)
	}
	if cfg.Gateway.Bind != "127.0.0.1:8377" {
		t.Errorf("Gateway.Bind = %q, want fallback default", cfg.Gateway.Bind)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
version: "1"
agent:
  url: ws://localhost:9000
  token: ${TAPLINE_TEST_DEFINITELY_UNSET}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "TAPLINE_TEST_DEFINITELY_UNSET") {
		t.Errorf("error %q does not name the unresolved variable", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing version",
			cfg:  Config{Agent: AgentConfig{URL: "ws://x"}},
			want: "version field is required",
		},
		{
			name: "unsupported version",
			cfg:  Config{Version: "2", Agent: AgentConfig{URL: "ws://x"}},
			want: "unsupported version",
		},
		{
			name: "missing agent url",
			cfg:  Config{Version: "1"},
			want: "agent.url is required",
		},
		{
			name: "wrong agent scheme",
			cfg:  Config{Version: "1", Agent: AgentConfig{URL: "http://x"}},
			want: "scheme must be ws or wss",
		},
		{
			name: "bad heartbeat schedule",
			cfg: Config{
				Version:   "1",
				Agent:     AgentConfig{URL: "ws://x"},
				Heartbeat: HeartbeatConfig{Schedule: "not-cron", Message: "ping"},
			},
			want: "heartbeat.schedule",
		},
		{
			name: "heartbeat schedule without message",
			cfg: Config{
				Version:   "1",
				Agent:     AgentConfig{URL: "ws://x"},
				Heartbeat: HeartbeatConfig{Schedule: "*/5 * * * *"},
			},
			want: "heartbeat.message is required",
		},
		{
			name: "unknown interceptor module",
			cfg: Config{
				Version:      "1",
				Agent:        AgentConfig{URL: "ws://x"},
				Interceptors: map[string]yaml.Node{"intercept.nope": {}},
			},
			want: "unknown interceptor module",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(&tc.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Version: "1",
		Agent:   AgentConfig{URL: "wss://agent.example/ws"},
		Heartbeat: HeartbeatConfig{
			Schedule: "*/30 * * * *",
			Message:  "heartbeat",
		},
	}
	if err := Validate(&cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGatewayConfig_Defaults(t *testing.T) {
	t.Parallel()

	var g GatewayConfig
	g.Defaults()

	if g.Bind != "127.0.0.1:8377" {
		t.Errorf("Bind = %q, want loopback default", g.Bind)
	}
	if g.ReadTimeout == 0 || g.WriteTimeout == 0 {
		t.Error("timeouts not defaulted")
	}
}
