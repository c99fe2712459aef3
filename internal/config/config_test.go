package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"COMMOTION_STORAGE", "COMMOTION_HOST", "COMMOTION_PORT", "COMMOTION_DEBUG",
		"COMMOTION_FRONTMATTER", "COMMOTION_GITHUB_REPO", "GITHUB_TOKEN", "SQLITE_DB_PATH", "WEBHOOK_SECRET",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Storage != "." {
		t.Errorf("Storage = %q, want %q", cfg.Storage, ".")
	}
	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Host, "localhost")
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want %d", cfg.Port, 8080)
	}
	if cfg.Debug || cfg.FrontMatter {
		t.Errorf("Debug = %v, FrontMatter = %v, want false", cfg.Debug, cfg.FrontMatter)
	}
	if cfg.GithubRepo != "" || cfg.Mirror != "" || cfg.WebhookSecret != "" {
		t.Errorf("unexpected optional values: %+v", cfg)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("COMMOTION_STORAGE", "s3://bucket/site")
	t.Setenv("COMMOTION_HOST", "0.0.0.0")
	t.Setenv("COMMOTION_PORT", "9090")
	t.Setenv("COMMOTION_DEBUG", "true")
	t.Setenv("COMMOTION_FRONTMATTER", "1")
	t.Setenv("COMMOTION_GITHUB_REPO", "owner/blog")
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("SQLITE_DB_PATH", "/var/lib/commotion.db")
	t.Setenv("WEBHOOK_SECRET", "secret")

	cfg := Load()

	want := Config{
		Storage:       "s3://bucket/site",
		Host:          "0.0.0.0",
		Port:          9090,
		Debug:         true,
		FrontMatter:   true,
		GithubRepo:    "owner/blog",
		GithubToken:   "token",
		Mirror:        "/var/lib/commotion.db",
		WebhookSecret: "secret",
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("COMMOTION_PORT", "eighty")
	t.Setenv("COMMOTION_DEBUG", "maybe")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default", cfg.Port)
	}
	if cfg.Debug {
		t.Error("Debug should fall back to false")
	}
}
