// Package catalog implements the song catalog over a storage backend:
// listing, adding, deleting and syncing songs, plus loading one song for
// playback.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"paroles/logger"
	"paroles/model"
	"paroles/storage"
	"paroles/subtitle"
)

// Manager defines the catalog operations over one storage backend. All
// operations on the same song id are serialized; independent songs may
// proceed concurrently.
type Manager interface {
	// ListSongs rebuilds the catalog from a backend snapshot: sorted by
	// id, excluded songs reported as warnings rather than failures.
	ListSongs(ctx context.Context) ([]model.Song, []SongWarning, error)
	// AddSong validates and uploads one local song folder. The id derives
	// from the folder name unless overridden, and is slugged either way.
	AddSong(ctx context.Context, sourceDir, idOverride string) (*model.Song, error)
	// DeleteSong removes every asset of the id and returns the count
	// actually removed. Unknown ids are a zero-count no-op.
	DeleteSong(ctx context.Context, id string) (int, error)
	// SyncDirectory uploads the new and changed songs of a local library
	// tree. Remote-only songs are reported, never deleted.
	SyncDirectory(ctx context.Context, root string) (*SyncReport, error)
	// LoadSong fetches and parses one song for playback.
	LoadSong(ctx context.Context, id string) (*LoadedSong, error)
}

// Options tunes a Manager. Zero values pick sensible defaults.
type Options struct {
	SyncWorkers   int // concurrent uploads during sync, default 4
	UploadsPerSec int // object put rate limit, 0 = unlimited
}

// LoadedSong is a song ready for a play session.
type LoadedSong struct {
	Song     model.Song
	Cues     []model.Cue
	Warnings []subtitle.Warning
}

type manager struct {
	backend storage.Backend
	workers int
	limiter *rate.Limiter

	mu      sync.Mutex
	idLocks map[string]*sync.Mutex
}

// NewManager builds a catalog manager over the given backend.
func NewManager(backend storage.Backend, opts Options) Manager {
	workers := opts.SyncWorkers
	if workers <= 0 {
		workers = 4
	}
	var limiter *rate.Limiter
	if opts.UploadsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.UploadsPerSec), opts.UploadsPerSec)
	}
	return &manager{
		backend: backend,
		workers: workers,
		limiter: limiter,
		idLocks: make(map[string]*sync.Mutex),
	}
}

// lockID serializes operations on one song id and returns the unlock.
func (m *manager) lockID(id string) func() {
	m.mu.Lock()
	l, ok := m.idLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.idLocks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// checkID rejects ids that could escape the per-song layout. Read-side
// ids come from listings or user input and are used as given; only the
// write path slugs.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, "_") {
		return fmt.Errorf("invalid song id %q", id)
	}
	return nil
}

func (m *manager) ListSongs(ctx context.Context) ([]model.Song, []SongWarning, error) {
	var snap map[string][]storage.ObjectInfo
	err := withRetry(ctx, "snapshot catalog", func() error {
		var err error
		snap, err = m.backend.Snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		songs    []model.Song
		warnings []SongWarning
	)
	for _, id := range ids {
		song, warning, err := m.buildSong(ctx, id, snap[id])
		if err != nil {
			return nil, nil, err
		}
		if warning != nil {
			logger.Warn("song excluded from catalog",
				logger.String("song", warning.ID),
				logger.String("reason", warning.Reason),
			)
			warnings = append(warnings, *warning)
			continue
		}
		songs = append(songs, *song)
	}
	return songs, warnings, nil
}

// buildSong assembles one catalog entry from a snapshot. A song that
// cannot be listed comes back as a warning; only auth failures abort the
// whole listing.
func (m *manager) buildSong(ctx context.Context, id string, objects []storage.ObjectInfo) (*model.Song, *SongWarning, error) {
	names := make([]string, 0, len(objects))
	hasSubtitles := false
	hasConfig := false
	for _, o := range objects {
		names = append(names, o.Key)
		switch o.Key {
		case storage.SubtitleFilename:
			hasSubtitles = true
		case storage.ConfigFilename:
			hasConfig = true
		}
	}
	if !hasSubtitles {
		return nil, &SongWarning{ID: id, Reason: "no subtitles.srt, not playable"}, nil
	}

	cfg := model.DefaultSongConfig(id)
	if hasConfig {
		parsed, err := m.fetchConfig(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrAuth) {
				return nil, nil, err
			}
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				return nil, &SongWarning{ID: id, Reason: verr.Error()}, nil
			}
			return nil, &SongWarning{ID: id, Reason: fmt.Sprintf("config unreadable: %v", err)}, nil
		}
		cfg = parsed
	}

	song := m.songFromConfig(id, cfg, names)
	return &song, nil, nil
}

// fetchConfig reads and validates a song's config.json. The defaults for
// an absent config are the caller's business; this surfaces ErrNotFound.
func (m *manager) fetchConfig(ctx context.Context, id string) (*model.SongConfig, error) {
	var data []byte
	err := withRetry(ctx, "read config "+id, func() error {
		rc, _, err := m.backend.Get(ctx, id, storage.AssetConfig)
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return model.ParseSongConfig(data)
}

// songFromConfig builds the catalog entry for an id from its validated
// config and stored filenames.
func (m *manager) songFromConfig(id string, cfg *model.SongConfig, names []string) model.Song {
	difficulty := cfg.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	song := model.Song{
		ID:                    id,
		Title:                 cfg.Title,
		Artist:                cfg.Artist,
		CutPointSeconds:       cfg.CutPointSeconds,
		DurationSeconds:       cfg.DurationSeconds,
		Difficulty:            difficulty,
		SubtitleOffsetSeconds: cfg.SubtitleOffsetSeconds,
		SubtitleRef:           m.backend.AssetURL(id, storage.SubtitleFilename),
	}
	if videoName := storage.FindVideoFilename(names); videoName != "" {
		song.HasVideo = true
		song.VideoRef = m.backend.AssetURL(id, videoName)
	}
	return song
}

func (m *manager) AddSong(ctx context.Context, sourceDir, idOverride string) (*model.Song, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", sourceDir)
	}

	rawID := idOverride
	if rawID == "" {
		rawID = filepath.Base(filepath.Clean(sourceDir))
	}
	id := SlugID(rawID)
	if id == "" {
		return nil, fmt.Errorf("cannot derive a song id from %q", rawID)
	}

	src, err := scanSourceDir(sourceDir)
	if err != nil {
		return nil, err
	}
	if src.Subtitles == nil {
		return nil, fmt.Errorf("no subtitle document (.srt) in %s", sourceDir)
	}

	// Validate everything before the first upload begins.
	cues, cueWarnings, err := parseSubtitleFile(src.Subtitles.SourcePath)
	if err != nil {
		return nil, err
	}
	for _, w := range cueWarnings {
		logger.Warn("malformed subtitle block skipped",
			logger.String("song", id),
			logger.String("detail", w.String()),
		)
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("subtitle document in %s has no usable cues", sourceDir)
	}
	derivedDuration := model.LastCueEnd(cues)

	var (
		cfg     *model.SongConfig
		cfgData []byte
	)
	if src.Config != nil {
		cfgData, err = os.ReadFile(src.Config.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config.json in %s: %w", sourceDir, err)
		}
		cfg, err = model.ParseSongConfig(cfgData)
		if err != nil {
			return nil, fmt.Errorf("config.json in %s: %w", sourceDir, err)
		}
		if cfg.CutPointSeconds != nil && cfg.DurationSeconds == nil && *cfg.CutPointSeconds > derivedDuration {
			logger.Warn("cut point lies beyond the last cue",
				logger.String("song", id),
				logger.Float64("cutPoint", *cfg.CutPointSeconds),
				logger.Float64("lastCueEnd", derivedDuration),
			)
		}
	} else {
		cfg = synthesizeConfig(id, derivedDuration)
		cfgData, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode synthesized config: %w", err)
		}
	}

	unlock := m.lockID(id)
	defer unlock()

	// Upload order: subtitles, config, video. The large video goes last,
	// so an interrupted add leaves a coherent lyrics-only song that the
	// idempotent re-add completes.
	var uploaded []storage.AssetKind

	if err := m.uploadFile(ctx, id, src.Subtitles); err != nil {
		return nil, &PartialUploadError{ID: id, Succeeded: uploaded, Failed: storage.AssetSubtitles, Err: err}
	}
	uploaded = append(uploaded, storage.AssetSubtitles)

	if err := m.uploadBytes(ctx, id, storage.ConfigFilename, cfgData); err != nil {
		return nil, &PartialUploadError{ID: id, Succeeded: uploaded, Failed: storage.AssetConfig, Err: err}
	}
	uploaded = append(uploaded, storage.AssetConfig)

	names := []string{storage.SubtitleFilename, storage.ConfigFilename}
	if src.Video != nil {
		if err := m.uploadFile(ctx, id, src.Video); err != nil {
			return nil, &PartialUploadError{ID: id, Succeeded: uploaded, Failed: storage.AssetVideo, Err: err}
		}
		names = append(names, src.Video.TargetName)
	} else {
		logger.Warn("song has no video, uploading lyrics only", logger.String("song", id))
	}

	logger.Info("song added",
		logger.String("song", id),
		logger.String("backend", m.backend.Name()),
		logger.Bool("video", src.Video != nil),
		logger.Int("cues", len(cues)),
	)

	song := m.songFromConfig(id, cfg, names)
	if song.DurationSeconds == nil {
		d := derivedDuration
		song.DurationSeconds = &d
	}
	return &song, nil
}

// uploadFile streams one source file to the backend under its target
// name, rate limited and retried on transient failures.
func (m *manager) uploadFile(ctx context.Context, id string, a *localAsset) error {
	if err := m.waitUploadSlot(ctx); err != nil {
		return err
	}
	return withRetry(ctx, fmt.Sprintf("upload %s/%s", id, a.TargetName), func() error {
		f, err := os.Open(a.SourcePath)
		if err != nil {
			return err
		}
		defer f.Close()
		return m.backend.Put(ctx, id, a.TargetName, f, a.Size, storage.ContentTypeFor(a.TargetName))
	})
}

func (m *manager) uploadBytes(ctx context.Context, id, filename string, data []byte) error {
	if err := m.waitUploadSlot(ctx); err != nil {
		return err
	}
	return withRetry(ctx, fmt.Sprintf("upload %s/%s", id, filename), func() error {
		return m.backend.Put(ctx, id, filename, bytes.NewReader(data), int64(len(data)), storage.ContentTypeFor(filename))
	})
}

func (m *manager) waitUploadSlot(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Wait(ctx)
}

func (m *manager) DeleteSong(ctx context.Context, id string) (int, error) {
	if err := checkID(id); err != nil {
		return 0, err
	}
	unlock := m.lockID(id)
	defer unlock()

	var count int
	err := withRetry(ctx, "delete "+id, func() error {
		var err error
		count, err = m.backend.Delete(ctx, id)
		return err
	})
	if err != nil {
		return count, fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	logger.Info("song deleted",
		logger.String("song", id),
		logger.Int("assetsRemoved", count),
	)
	return count, nil
}

func (m *manager) LoadSong(ctx context.Context, id string) (*LoadedSong, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var data []byte
	err := withRetry(ctx, "fetch subtitles "+id, func() error {
		rc, _, err := m.backend.Get(ctx, id, storage.AssetSubtitles)
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &AssetMissingError{ID: id, Kind: storage.AssetSubtitles}
		}
		return nil, fmt.Errorf("failed to load song %s: %w", id, err)
	}

	cues, warnings, err := subtitle.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse subtitles of %s: %w", id, err)
	}
	for _, w := range warnings {
		logger.Warn("malformed subtitle block skipped",
			logger.String("song", id),
			logger.String("detail", w.String()),
		)
	}

	cfg, err := m.fetchConfig(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			cfg = model.DefaultSongConfig(id)
		} else {
			return nil, fmt.Errorf("failed to load song %s: %w", id, err)
		}
	}

	if cfg.SubtitleOffsetSeconds != 0 {
		cues = model.ShiftCues(cues, cfg.SubtitleOffsetSeconds)
	}

	var names []string
	if objects, err := m.backend.Assets(ctx, id); err == nil {
		for _, o := range objects {
			names = append(names, o.Key)
		}
	} else {
		logger.Warn("could not list song assets",
			logger.String("song", id), logger.ErrorField(err))
		names = []string{storage.SubtitleFilename}
	}

	song := m.songFromConfig(id, cfg, names)
	if song.DurationSeconds == nil {
		d := model.LastCueEnd(cues)
		song.DurationSeconds = &d
	}
	return &LoadedSong{Song: song, Cues: cues, Warnings: warnings}, nil
}

// parseSubtitleFile parses one local SRT file.
func parseSubtitleFile(path string) ([]model.Cue, []subtitle.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return subtitle.Parse(f)
}

// synthesizeConfig builds the config written for songs added without
// one: title from the id, placeholder artist, and the game's default cut
// at half the duration, rounded to a tenth of a second.
func synthesizeConfig(id string, durationSeconds float64) *model.SongConfig {
	cfg := model.DefaultSongConfig(id)
	cut := math.Round(durationSeconds*0.5*10) / 10
	dur := math.Round(durationSeconds*1000) / 1000
	cfg.CutPointSeconds = &cut
	cfg.DurationSeconds = &dur
	return cfg
}
