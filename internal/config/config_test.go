package config

import (
	"reflect"
	"testing"
	"time"

	"peerprep/interview/internal/models"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("INTERVIEW_SKILLS", "")
	t.Setenv("INTERVIEW_REQUIRE_SESSION", "")
	t.Setenv("GATEWAY_TIMEOUT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Fatalf("expected provider gemini, got %s", cfg.Provider)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %s", cfg.DBDriver)
	}
	if !cfg.RequireSession {
		t.Fatal("expected session existence to be required by default")
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Fatalf("expected 30s gateway timeout, got %s", cfg.GatewayTimeout)
	}
	if !reflect.DeepEqual(cfg.Skills, models.DefaultSkills) {
		t.Fatalf("expected default skills, got %v", cfg.Skills)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("INTERVIEW_SKILLS", "Communication, system design,communication")
	t.Setenv("INTERVIEW_REQUIRE_SESSION", "false")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("OPERATOR_API_KEY", "ops-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %s", cfg.DBDriver)
	}
	if cfg.RequireSession {
		t.Fatal("expected lazy session creation to be enabled")
	}
	if cfg.GatewayTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.GatewayTimeout)
	}
	if cfg.OperatorKey != "ops-key" {
		t.Fatalf("expected operator key to be loaded, got %q", cfg.OperatorKey)
	}
	if want := []string{"communication", "system_design"}; !reflect.DeepEqual(cfg.Skills, want) {
		t.Fatalf("expected %v, got %v", want, cfg.Skills)
	}
}

func TestLoadConfig_UnsupportedProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "unknown")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported database driver")
	}
}

func TestLoadConfig_InvalidExportScore(t *testing.T) {
	t.Setenv("TRANSCRIPT_EXPORT_MIN_SCORE", "11")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for out of range export score")
	}
}

func TestNormalizeSkill(t *testing.T) {
	cases := map[string]string{
		" Problem Solving ": "problem_solving",
		"system-design":     "system_design",
		"coding":            "coding",
		"   ":               "",
	}
	for input, want := range cases {
		if got := NormalizeSkill(input); got != want {
			t.Fatalf("NormalizeSkill(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("UNIT_TEST_ENV", "value")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %s", got)
	}
	t.Setenv("UNIT_TEST_ENV", "")
	if got := getEnvOrDefault("UNIT_TEST_ENV", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback value, got %s", got)
	}
	t.Setenv("UNIT_TEST_INT", "nope")
	if got := getEnvInt("UNIT_TEST_INT", 4); got != 4 {
		t.Fatalf("expected fallback int, got %d", got)
	}
}
