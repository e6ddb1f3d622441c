package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"paroles/config"
)

// AssetKind names one of the three assets stored per song.
type AssetKind string

const (
	AssetVideo     AssetKind = "video"
	AssetSubtitles AssetKind = "subtitles"
	AssetConfig    AssetKind = "config"
)

// Fixed asset filenames inside a song folder. The video keeps its source
// extension, so only its basename is fixed.
const (
	SubtitleFilename = "subtitles.srt"
	ConfigFilename   = "config.json"
	VideoBasename    = "video"
)

// VideoExtensions lists the accepted video containers, in the order the
// backends probe for them.
var VideoExtensions = []string{".mp4", ".webm", ".mkv", ".avi", ".mov", ".m4v", ".ogg"}

// Sentinel errors shared by all backends. Everything else returned from a
// backend is treated as a transient I/O failure.
var (
	ErrNotFound = errors.New("storage: object not found")
	ErrAuth     = errors.New("storage: authentication rejected")
)

// Retryable reports whether an operation that returned err may be retried.
// Auth rejections are permanent, missing objects do not heal by retrying,
// and cancellation must win immediately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuth) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// ObjectInfo describes one stored asset. Key is the filename relative to
// the song folder, never the backend-internal path.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Backend defines the capability set a song store must provide. Both
// variants expose the same per-song layout: <id>/video.<ext>,
// <id>/subtitles.srt, <id>/config.json.
type Backend interface {
	// Name identifies the variant for logs and reports.
	Name() string
	// List returns the sorted ids present. Ids starting with "_" are
	// reserved and skipped.
	List(ctx context.Context) ([]string, error)
	// Snapshot returns every asset grouped by song id in one listing
	// pass. List and sync diffing both derive from it.
	Snapshot(ctx context.Context) (map[string][]ObjectInfo, error)
	// Assets lists the stored files of one song. Unknown ids yield an
	// empty slice, not an error.
	Assets(ctx context.Context, id string) ([]ObjectInfo, error)
	// Exists reports whether any asset is stored under the id.
	Exists(ctx context.Context, id string) (bool, error)
	// Get opens one asset for reading. The video asset is resolved by
	// probing the accepted extensions. Missing assets return ErrNotFound.
	Get(ctx context.Context, id string, kind AssetKind) (io.ReadCloser, ObjectInfo, error)
	// Put stores one asset under the given filename, overwriting any
	// previous version. Writing a video removes stale video variants with
	// a different extension, so a song never holds two videos.
	Put(ctx context.Context, id, filename string, r io.Reader, size int64, contentType string) error
	// Delete removes every asset under the id and returns the count
	// actually removed. An unknown id is a zero-count no-op.
	Delete(ctx context.Context, id string) (int, error)
	// AssetURL returns the reference a client fetches the asset from.
	// Empty when the backend cannot offer direct fetch.
	AssetURL(id, filename string) string
}

// FromConfig resolves the backend once at process start: remote when the
// bucket credentials are configured, local directory tree otherwise.
func FromConfig(cfg *config.Config) (Backend, error) {
	if cfg.CloudMode() {
		return NewMinioBackend(cfg)
	}
	return NewLocalBackend(cfg.VideosDir), nil
}

// AssetFilename maps an asset kind to its filename. videoExt is only
// consulted for the video kind.
func AssetFilename(kind AssetKind, videoExt string) string {
	switch kind {
	case AssetSubtitles:
		return SubtitleFilename
	case AssetConfig:
		return ConfigFilename
	default:
		return VideoBasename + videoExt
	}
}

// HasVideoExtension reports whether the filename carries one of the
// accepted video containers. Adding a song normalizes the video to
// video.<ext>, but hand-built folders with arbitrary names still play.
func HasVideoExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range VideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindVideoFilename picks the video asset out of a song's filenames,
// preferring the canonical video.<ext> form. Empty when none is present.
func FindVideoFilename(names []string) string {
	var fallback string
	for _, name := range names {
		if !HasVideoExtension(name) {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == VideoBasename {
			return name
		}
		if fallback == "" || name < fallback {
			fallback = name
		}
	}
	return fallback
}

// ContentTypeFor guesses a MIME type from the filename, falling back to a
// generic binary type.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// reservedID reports ids hidden from listings, matching the "_" folder
// convention of the song library.
func reservedID(id string) bool {
	return id == "" || strings.HasPrefix(id, "_") || strings.HasPrefix(id, ".")
}
