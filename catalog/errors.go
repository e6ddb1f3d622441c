package catalog

import (
	"fmt"
	"strings"

	"paroles/storage"
)

// AssetMissingError reports a requested asset that is absent from the
// backend. Playback degrades instead of crashing, so callers usually turn
// this into a warning unless the asset is essential.
type AssetMissingError struct {
	ID   string
	Kind storage.AssetKind
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("song %s has no %s asset", e.ID, e.Kind)
}

// PartialUploadError reports an add that stopped mid-way. It names the
// assets already uploaded; those stand, and re-running the add with the
// same source repairs the song idempotently.
type PartialUploadError struct {
	ID        string
	Succeeded []storage.AssetKind
	Failed    storage.AssetKind
	Err       error
}

func (e *PartialUploadError) Error() string {
	uploaded := "none"
	if len(e.Succeeded) > 0 {
		parts := make([]string, len(e.Succeeded))
		for i, k := range e.Succeeded {
			parts[i] = string(k)
		}
		uploaded = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("partial upload of %s: %s failed (uploaded: %s): %v", e.ID, e.Failed, uploaded, e.Err)
}

func (e *PartialUploadError) Unwrap() error {
	return e.Err
}

// SongWarning records one song excluded or degraded during a batch
// operation. Batches isolate failures per song and keep going.
type SongWarning struct {
	ID     string
	Reason string
}

func (w SongWarning) String() string {
	return fmt.Sprintf("%s: %s", w.ID, w.Reason)
}
