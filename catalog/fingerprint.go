package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"paroles/storage"
)

// localAsset is one uploadable file of a source folder, mapped to its
// canonical target filename in the backend layout.
type localAsset struct {
	Kind       storage.AssetKind
	TargetName string
	SourcePath string
	Size       int64
	ModTime    time.Time
}

// sourceSong is the scanned content of one local song folder.
type sourceSong struct {
	Dir       string
	Video     *localAsset // nil for a lyrics-only song
	Subtitles *localAsset // nil when the folder has no subtitle document
	Config    *localAsset // nil when no config.json ships with the song
}

// assets returns the assets present in the folder.
func (s *sourceSong) assets() []*localAsset {
	var out []*localAsset
	for _, a := range []*localAsset{s.Subtitles, s.Config, s.Video} {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// scanSourceDir enumerates the uploadable assets of one song folder. The
// subtitle document is subtitles.srt or, failing that, the first .srt in
// name order; the video keeps its container extension but is renamed to
// the canonical video.<ext>; only a file named config.json counts as the
// config.
func scanSourceDir(dir string) (*sourceSong, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	src := &sourceSong{Dir: dir}

	pick := func(name string, kind storage.AssetKind, target string) (*localAsset, error) {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		return &localAsset{
			Kind:       kind,
			TargetName: target,
			SourcePath: path,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		}, nil
	}

	for _, name := range names {
		lower := strings.ToLower(name)
		switch {
		case src.Subtitles == nil && strings.HasSuffix(lower, ".srt"):
			if src.Subtitles, err = pick(name, storage.AssetSubtitles, storage.SubtitleFilename); err != nil {
				return nil, err
			}
		case lower == storage.SubtitleFilename:
			// Canonical name wins over an earlier .srt pick.
			if src.Subtitles, err = pick(name, storage.AssetSubtitles, storage.SubtitleFilename); err != nil {
				return nil, err
			}
		case storage.HasVideoExtension(name) && strings.TrimSuffix(lower, filepath.Ext(lower)) == storage.VideoBasename:
			// Canonical name wins over an earlier video pick.
			ext := strings.ToLower(filepath.Ext(name))
			if src.Video, err = pick(name, storage.AssetVideo, storage.VideoBasename+ext); err != nil {
				return nil, err
			}
		case src.Video == nil && storage.HasVideoExtension(name):
			ext := strings.ToLower(filepath.Ext(name))
			if src.Video, err = pick(name, storage.AssetVideo, storage.VideoBasename+ext); err != nil {
				return nil, err
			}
		case lower == storage.ConfigFilename:
			if src.Config, err = pick(name, storage.AssetConfig, storage.ConfigFilename); err != nil {
				return nil, err
			}
		}
	}
	return src, nil
}

// needsUpload compares a source song's change fingerprint against the
// remote assets stored under its id: a song is fresh only when every
// local asset exists remotely under its target name with the same size
// and a remote timestamp at least as new as the local file.
func needsUpload(src *sourceSong, remote []storage.ObjectInfo) bool {
	byName := make(map[string]storage.ObjectInfo, len(remote))
	for _, o := range remote {
		byName[o.Key] = o
	}
	for _, a := range src.assets() {
		stored, ok := byName[a.TargetName]
		if !ok {
			return true
		}
		if stored.Size != a.Size {
			return true
		}
		if a.ModTime.After(stored.LastModified) {
			return true
		}
	}
	return false
}
