package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// localBackend stores songs as subdirectories of a library root.
type localBackend struct {
	root string
}

// NewLocalBackend creates a backend over a local directory tree. The root
// is created lazily on the first Put.
func NewLocalBackend(root string) Backend {
	return &localBackend{root: root}
}

func (l *localBackend) Name() string {
	return "local"
}

func (l *localBackend) songDir(id string) string {
	return filepath.Join(l.root, id)
}

func (l *localBackend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read library root %s: %w", l.root, err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || reservedID(e.Name()) {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *localBackend) Snapshot(ctx context.Context) (map[string][]ObjectInfo, error) {
	ids, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	snap := make(map[string][]ObjectInfo, len(ids))
	for _, id := range ids {
		objects, err := l.Assets(ctx, id)
		if err != nil {
			return nil, err
		}
		snap[id] = objects
	}
	return snap, nil
}

func (l *localBackend) Assets(ctx context.Context, id string) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.songDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read song folder %s: %w", id, err)
	}
	var objects []ObjectInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s/%s: %w", id, e.Name(), err)
		}
		objects = append(objects, ObjectInfo{
			Key:          e.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime(),
			ContentType:  ContentTypeFor(e.Name()),
		})
	}
	return objects, nil
}

func (l *localBackend) Exists(ctx context.Context, id string) (bool, error) {
	info, err := os.Stat(l.songDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat song folder %s: %w", id, err)
	}
	return info.IsDir(), nil
}

func (l *localBackend) Get(ctx context.Context, id string, kind AssetKind) (io.ReadCloser, ObjectInfo, error) {
	filename, err := l.resolveFilename(ctx, id, kind)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	path := filepath.Join(l.songDir(id), filename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, fmt.Errorf("asset %s/%s: %w", id, filename, ErrNotFound)
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to open %s/%s: %w", id, filename, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat %s/%s: %w", id, filename, err)
	}
	info := ObjectInfo{
		Key:          filename,
		Size:         stat.Size(),
		LastModified: stat.ModTime(),
		ContentType:  ContentTypeFor(filename),
	}
	return f, info, nil
}

// resolveFilename maps an asset kind to the filename present on disk,
// scanning the folder for the video.
func (l *localBackend) resolveFilename(ctx context.Context, id string, kind AssetKind) (string, error) {
	if kind != AssetVideo {
		return AssetFilename(kind, ""), nil
	}
	objects, err := l.Assets(ctx, id)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Key)
	}
	if name := FindVideoFilename(names); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("asset %s/%s.*: %w", id, VideoBasename, ErrNotFound)
}

func (l *localBackend) Put(ctx context.Context, id, filename string, r io.Reader, size int64, contentType string) error {
	dir := l.songDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create song folder %s: %w", id, err)
	}
	// Write to a temp file in the same directory, then rename. A failed
	// put never leaves a partially written asset visible.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s/%s: %w", id, filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize %s/%s: %w", id, filename, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place %s/%s: %w", id, filename, err)
	}
	if HasVideoExtension(filename) {
		l.removeStaleVideos(id, filename)
	}
	return nil
}

// removeStaleVideos drops video files left behind by an earlier upload
// with a different name or container extension.
func (l *localBackend) removeStaleVideos(id, keep string) {
	entries, err := os.ReadDir(l.songDir(id))
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == keep || !HasVideoExtension(name) {
			continue
		}
		os.Remove(filepath.Join(l.songDir(id), name))
	}
}

func (l *localBackend) Delete(ctx context.Context, id string) (int, error) {
	dir := l.songDir(id)
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan song folder %s: %w", id, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("failed to delete song folder %s: %w", id, err)
	}
	return count, nil
}

func (l *localBackend) AssetURL(id, filename string) string {
	// Local assets are served by the host process under /videos/.
	return "/videos/" + id + "/" + strings.TrimPrefix(filename, "/")
}
