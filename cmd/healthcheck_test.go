package cmd

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/labstack/echo/v4"
)

func TestHealthcheckCommand(t *testing.T) {
	env := newTestEnv(t)
	env.server.Seed("existing", time.Now(), internal.HistoryEntry{Role: "user", Content: "Seeded chat"})

	out, err := env.run("healthcheck", "--details")
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, out)
	}
	for _, want := range []string{"Backend healthy", "Found 1 session(s)", "[1] Seeded chat", "Health check passed", env.ts.URL} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Probing chat") {
		t.Error("chat probe ran without --probe-chat")
	}
}

func TestHealthcheckCommand_ProbeChat(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("healthcheck", "--probe-chat", "--probe-query", "are you there", "-d")
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Chat replied after 1 attempt(s)") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "You said: **are you there**") {
		t.Errorf("probe reply not shown:\n%s", out)
	}
}

func TestHealthcheckCommand_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.ts.Close()

	out, err := env.run("healthcheck")
	if err == nil {
		t.Fatal("expected healthcheck to fail")
	}
	if !strings.Contains(out, "Backend unreachable") {
		t.Errorf("output:\n%s", out)
	}
}

func TestHealthcheckCommand_Unhealthy(t *testing.T) {
	env := newTestEnv(t)

	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, internal.HealthStatus{Status: "degraded"})
	})
	degraded := httptest.NewServer(e)
	defer degraded.Close()

	// a later --api-url wins over the one run adds
	out, err := env.run("--api-url", degraded.URL, "healthcheck")
	if err == nil || !strings.Contains(out, `status "degraded"`) {
		t.Errorf("healthcheck error = %v\n%s", err, out)
	}
}

func TestHealthcheckCommand_ServerError(t *testing.T) {
	env := newTestEnv(t)

	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(500, map[string]string{"detail": "agent crashed"})
	})
	failing := httptest.NewServer(e)
	defer failing.Close()

	out, err := env.run("--api-url", failing.URL, "healthcheck")
	if err == nil || !strings.Contains(err.Error(), "degraded") {
		t.Errorf("healthcheck error = %v", err)
	}
	if !strings.Contains(out, "reachable but degraded") || strings.Contains(out, "unreachable") {
		t.Errorf("output:\n%s", out)
	}
}

func TestHealthcheckCommandExists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "healthcheck" {
			found = true
			if cmd.Flag("probe-chat") == nil || cmd.Flag("details") == nil {
				t.Error("healthcheck flags missing")
			}
			break
		}
	}
	if !found {
		t.Error("healthcheck command not found in root command")
	}
}
