package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ThemeDir != "themes" || cfg.DefaultTheme != "classic" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RoomCodeLength != 5 || cfg.PollTimeoutSeconds != 30 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("THEME_DIR", "/srv/themes")
	t.Setenv("ROOM_CODE_LENGTH", "6")
	t.Setenv("POLL_TIMEOUT_SECONDS", "45")
	cfg := Load()
	if cfg.ThemeDir != "/srv/themes" {
		t.Fatalf("theme dir = %q", cfg.ThemeDir)
	}
	if cfg.RoomCodeLength != 6 || cfg.PollTimeoutSeconds != 45 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("ROOM_CODE_LENGTH", "zero")
	t.Setenv("POLL_TIMEOUT_SECONDS", "-1")
	cfg := Load()
	if cfg.RoomCodeLength != 5 || cfg.PollTimeoutSeconds != 30 {
		t.Fatalf("invalid values should keep defaults: %+v", cfg)
	}
}
