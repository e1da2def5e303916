package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DOCSTORE", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.DocStoreType != "memory" {
		t.Fatalf("expected memory docstore without database, got %q", cfg.DocStoreType)
	}
	if cfg.OCRSpaceURL != "https://api.ocr.space/parse/image" {
		t.Fatalf("unexpected ocr url: %q", cfg.OCRSpaceURL)
	}
	if cfg.OCRTimeout != 30*time.Second || cfg.OCRMaxAttempts != 3 {
		t.Fatalf("unexpected ocr retry settings: %s %d", cfg.OCRTimeout, cfg.OCRMaxAttempts)
	}
}

func TestLoadEnvOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	dotenv := "PORT=9000\nENV=prod\nOCR_SPACE_API_KEY=from-file\nDATABASE_URL=postgres://localhost/hemotwin\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected env to win, got %q", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production from .env, got %q", cfg.Env)
	}
	if cfg.OCRSpaceAPIKey != "from-file" {
		t.Fatalf("expected api key from .env, got %q", cfg.OCRSpaceAPIKey)
	}
	if cfg.DocStoreType != "postgres" {
		t.Fatalf("expected postgres docstore when database configured, got %q", cfg.DocStoreType)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigin)
	}
}

func TestNormalizeDocStoreType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw, dbURL, want string
	}{
		{raw: "rtdb", want: "firebase"},
		{raw: "Firestore", want: "firestore"},
		{raw: "PG", want: "postgres"},
		{raw: "memory", dbURL: "postgres://x", want: "memory"},
		{raw: "", dbURL: "postgres://x", want: "postgres"},
		{raw: "bogus", want: "memory"},
	}
	for _, tt := range tests {
		if got := normalizeDocStoreType(tt.raw, tt.dbURL); got != tt.want {
			t.Fatalf("normalizeDocStoreType(%q, %q) = %q, want %q", tt.raw, tt.dbURL, got, tt.want)
		}
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}
