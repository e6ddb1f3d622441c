package config

import (
	"os"
	"strings"
	"testing"
)

var allVars = []string{
	"VIDEOS_DIR", "R2_BUCKET_NAME", "R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID",
	"R2_SECRET_ACCESS_KEY", "R2_PUBLIC_URL", "R2_KEY_PREFIX",
	"LOG_LEVEL", "LOG_FILE", "SYNC_WORKERS", "SYNC_UPLOADS_PER_SEC",
}

// clearEnv unsets every config variable for the test, with restore.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.VideosDir != "./videos" {
		t.Errorf("VideosDir = %q, want ./videos", cfg.VideosDir)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.SyncWorkers != 4 {
		t.Errorf("SyncWorkers = %d, want 4", cfg.SyncWorkers)
	}
	if cfg.SyncUploadsPerSec != 0 {
		t.Errorf("SyncUploadsPerSec = %d, want 0", cfg.SyncUploadsPerSec)
	}
	if cfg.CloudMode() {
		t.Error("CloudMode without a bucket should be false")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIDEOS_DIR", "/srv/chansons")
	t.Setenv("R2_BUCKET_NAME", "karaoke")
	t.Setenv("R2_ACCOUNT_ID", "abc123")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_PUBLIC_URL", "https://cdn.example.com")
	t.Setenv("R2_KEY_PREFIX", "songs")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYNC_WORKERS", "8")
	t.Setenv("SYNC_UPLOADS_PER_SEC", "5")

	cfg := Load()
	if cfg.VideosDir != "/srv/chansons" {
		t.Errorf("VideosDir = %q", cfg.VideosDir)
	}
	if cfg.R2Bucket != "karaoke" || cfg.R2AccountID != "abc123" {
		t.Errorf("bucket config = %q / %q", cfg.R2Bucket, cfg.R2AccountID)
	}
	if cfg.R2PublicURL != "https://cdn.example.com" || cfg.R2KeyPrefix != "songs" {
		t.Errorf("url config = %q / %q", cfg.R2PublicURL, cfg.R2KeyPrefix)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.SyncWorkers != 8 || cfg.SyncUploadsPerSec != 5 {
		t.Errorf("sync tuning = %d / %d", cfg.SyncWorkers, cfg.SyncUploadsPerSec)
	}
	if !cfg.CloudMode() {
		t.Error("CloudMode with a bucket should be true")
	}
}

func TestLoadIgnoresUnparsableInts(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYNC_WORKERS", "beaucoup")

	cfg := Load()
	if cfg.SyncWorkers != 4 {
		t.Errorf("SyncWorkers = %d, want the default 4", cfg.SyncWorkers)
	}
}

func TestR2Endpoint(t *testing.T) {
	cfg := &Config{R2AccountID: "abc123"}
	want := "abc123.r2.cloudflarestorage.com"
	if got := cfg.R2Endpoint(); got != want {
		t.Errorf("R2Endpoint = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "local mode needs nothing",
			cfg:  Config{VideosDir: "./videos"},
		},
		{
			name:    "cloud mode without account",
			cfg:     Config{R2Bucket: "karaoke", R2AccessKeyID: "k", R2SecretAccessKey: "s"},
			wantErr: "R2_ACCOUNT_ID",
		},
		{
			name:    "cloud mode without credentials",
			cfg:     Config{R2Bucket: "karaoke", R2AccountID: "abc123"},
			wantErr: "credentials",
		},
		{
			name: "cloud mode complete",
			cfg: Config{
				R2Bucket: "karaoke", R2AccountID: "abc123",
				R2AccessKeyID: "k", R2SecretAccessKey: "s",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
