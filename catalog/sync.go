package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"paroles/logger"
	"paroles/storage"
)

// SyncDiff is the change set computed before any upload starts.
type SyncDiff struct {
	ToUpload   []string // new or changed locally
	Unchanged  []string // fingerprints match, skipped
	RemoteOnly []string // present remotely with no local folder, reported only
}

// SyncFailure records one song whose upload failed.
type SyncFailure struct {
	ID  string
	Err error
}

// SyncReport summarizes one sync run.
type SyncReport struct {
	Backend  string
	Diff     SyncDiff
	Uploaded []string
	Failed   []SyncFailure
	Skipped  []SongWarning // local folders that cannot become songs
}

// InSync reports whether the run left the backend matching the library:
// every planned upload landed and nothing failed.
func (r *SyncReport) InSync() bool {
	return len(r.Failed) == 0 && len(r.Uploaded) == len(r.Diff.ToUpload)
}

// syncTask pairs a song id with the local folder it uploads from.
type syncTask struct {
	id  string
	dir string
}

func (m *manager) SyncDirectory(ctx context.Context, root string) (*SyncReport, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read library %s: %w", root, err)
	}

	var snap map[string][]storage.ObjectInfo
	err = withRetry(ctx, "snapshot before sync", func() error {
		var err error
		snap, err = m.backend.Snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sync %s: %w", root, err)
	}

	report := &SyncReport{Backend: m.backend.Name()}
	localIDs := make(map[string]bool)
	var tasks []syncTask

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		id := SlugID(name)
		if id == "" {
			report.Skipped = append(report.Skipped, SongWarning{ID: name, Reason: "folder name yields an empty id"})
			continue
		}
		localIDs[id] = true

		src, err := scanSourceDir(filepath.Join(root, name))
		if err != nil {
			report.Failed = append(report.Failed, SyncFailure{ID: id, Err: err})
			continue
		}
		if src.Subtitles == nil {
			report.Skipped = append(report.Skipped, SongWarning{ID: id, Reason: "no subtitle document, skipped"})
			continue
		}
		if needsUpload(src, snap[id]) {
			tasks = append(tasks, syncTask{id: id, dir: src.Dir})
			report.Diff.ToUpload = append(report.Diff.ToUpload, id)
		} else {
			report.Diff.Unchanged = append(report.Diff.Unchanged, id)
		}
	}

	for id := range snap {
		if !localIDs[id] {
			report.Diff.RemoteOnly = append(report.Diff.RemoteOnly, id)
		}
	}
	sort.Strings(report.Diff.RemoteOnly)

	m.runUploads(ctx, tasks, report)

	sort.Strings(report.Uploaded)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].ID < report.Failed[j].ID })

	logger.Info("sync finished",
		logger.String("backend", report.Backend),
		logger.Int("uploaded", len(report.Uploaded)),
		logger.Int("unchanged", len(report.Diff.Unchanged)),
		logger.Int("failed", len(report.Failed)),
		logger.Int("remoteOnly", len(report.Diff.RemoteOnly)),
	)
	return report, nil
}

// runUploads feeds the change set through a bounded worker pool. A
// failed song never stops the others; cancellation stops the pool after
// the uploads already in flight.
func (m *manager) runUploads(ctx context.Context, tasks []syncTask, report *SyncReport) {
	if len(tasks) == 0 {
		return
	}

	taskChan := make(chan syncTask, len(tasks))
	for _, t := range tasks {
		taskChan <- t
	}
	close(taskChan)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < min(m.workers, len(tasks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				if ctx.Err() != nil {
					mu.Lock()
					report.Failed = append(report.Failed, SyncFailure{ID: task.id, Err: ctx.Err()})
					mu.Unlock()
					continue
				}
				song, err := m.AddSong(ctx, task.dir, task.id)
				mu.Lock()
				if err != nil {
					report.Failed = append(report.Failed, SyncFailure{ID: task.id, Err: err})
				} else {
					report.Uploaded = append(report.Uploaded, song.ID)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
