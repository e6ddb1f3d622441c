package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"paroles/config"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"wrapped not found", fmt.Errorf("asset x: %w", ErrNotFound), false},
		{"auth", fmt.Errorf("put: %w", ErrAuth), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"io failure", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFindVideoFilename(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"canonical", []string{"config.json", "video.mp4", "subtitles.srt"}, "video.mp4"},
		{"canonical beats name order", []string{"aaa.mp4", "video.webm"}, "video.webm"},
		{"fallback picks first by name", []string{"zz.mp4", "aa.mkv"}, "aa.mkv"},
		{"uppercase extension", []string{"Clip.MP4"}, "Clip.MP4"},
		{"no video", []string{"subtitles.srt", "config.json", "cover.jpg"}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindVideoFilename(tt.files); got != tt.want {
				t.Errorf("FindVideoFilename(%v) = %q, want %q", tt.files, got, tt.want)
			}
		})
	}
}

func TestAssetFilename(t *testing.T) {
	if got := AssetFilename(AssetSubtitles, ""); got != "subtitles.srt" {
		t.Errorf("subtitles filename = %q", got)
	}
	if got := AssetFilename(AssetConfig, ""); got != "config.json" {
		t.Errorf("config filename = %q", got)
	}
	if got := AssetFilename(AssetVideo, ".webm"); got != "video.webm" {
		t.Errorf("video filename = %q", got)
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := ContentTypeFor("config.json"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("json content type = %q", got)
	}
	if got := ContentTypeFor("mystery.zzyx"); got != "application/octet-stream" {
		t.Errorf("unknown extension content type = %q", got)
	}
}

func TestFromConfigPicksLocalWithoutBucket(t *testing.T) {
	cfg := &config.Config{VideosDir: t.TempDir()}

	b, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if b.Name() != "local" {
		t.Errorf("backend = %q, want local", b.Name())
	}
}

func TestMapMinioError(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"NoSuchKey", ErrNotFound},
		{"NoSuchBucket", ErrNotFound},
		{"AccessDenied", ErrAuth},
		{"InvalidAccessKeyId", ErrAuth},
		{"SignatureDoesNotMatch", ErrAuth},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			mapped := mapMinioError(minio.ErrorResponse{Code: tt.code})
			if !errors.Is(mapped, tt.want) {
				t.Errorf("code %s mapped to %v, want %v", tt.code, mapped, tt.want)
			}
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		plain := errors.New("connection reset")
		if got := mapMinioError(plain); got != plain {
			t.Errorf("mapMinioError rewrote a transient error: %v", got)
		}
		if !Retryable(mapMinioError(plain)) {
			t.Error("transient errors must stay retryable")
		}
	})
}
