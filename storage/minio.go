package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"paroles/config"
	"paroles/logger"
)

// minioBackend stores songs in an S3-compatible bucket (Cloudflare R2 in
// production) under <prefix>/<id>/<filename> keys.
type minioBackend struct {
	client    *minio.Client
	bucket    string
	keyPrefix string // normalized to end with "/" when set
	publicURL string
}

// NewMinioBackend connects to the configured bucket and verifies it is
// reachable before returning.
func NewMinioBackend(cfg *config.Config) (Backend, error) {
	client, err := minio.New(cfg.R2Endpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		Secure: true,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.R2Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to reach bucket %s: %w", cfg.R2Bucket, mapMinioError(err))
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.R2Bucket)
	}

	prefix := strings.Trim(cfg.R2KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	logger.Info("connected to remote storage",
		logger.String("bucket", cfg.R2Bucket),
		logger.String("endpoint", cfg.R2Endpoint()),
		logger.String("prefix", prefix),
	)

	return &minioBackend{
		client:    client,
		bucket:    cfg.R2Bucket,
		keyPrefix: prefix,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

func (m *minioBackend) Name() string {
	return "r2"
}

func (m *minioBackend) fullKey(id, filename string) string {
	return m.keyPrefix + id + "/" + filename
}

// splitKey turns a bucket key back into (id, filename). Returns ok=false
// for keys outside the song layout.
func (m *minioBackend) splitKey(key string) (string, string, bool) {
	rel := strings.TrimPrefix(key, m.keyPrefix)
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (m *minioBackend) List(ctx context.Context) ([]string, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *minioBackend) Snapshot(ctx context.Context) (map[string][]ObjectInfo, error) {
	snap := make(map[string][]ObjectInfo)
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.keyPrefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", m.bucket, mapMinioError(object.Err))
		}
		id, filename, ok := m.splitKey(object.Key)
		if !ok || reservedID(id) {
			continue
		}
		contentType := object.ContentType
		if contentType == "" {
			contentType = ContentTypeFor(filename)
		}
		snap[id] = append(snap[id], ObjectInfo{
			Key:          filename,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  contentType,
		})
	}
	return snap, nil
}

func (m *minioBackend) Exists(ctx context.Context, id string) (bool, error) {
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.keyPrefix + id + "/",
		Recursive: true,
		MaxKeys:   1,
	})
	for object := range objectCh {
		if object.Err != nil {
			return false, fmt.Errorf("failed to check song %s: %w", id, mapMinioError(object.Err))
		}
		return true, nil
	}
	return false, nil
}

func (m *minioBackend) Get(ctx context.Context, id string, kind AssetKind) (io.ReadCloser, ObjectInfo, error) {
	filename, err := m.resolveFilename(ctx, id, kind)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	object, err := m.client.GetObject(ctx, m.bucket, m.fullKey(id, filename), minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("failed to get %s/%s: %w", id, filename, mapMinioError(err))
	}
	stat, err := object.Stat()
	if err != nil {
		object.Close()
		mapped := mapMinioError(err)
		if errors.Is(mapped, ErrNotFound) {
			return nil, ObjectInfo{}, fmt.Errorf("asset %s/%s: %w", id, filename, ErrNotFound)
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat %s/%s: %w", id, filename, mapped)
	}
	contentType := stat.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(filename)
	}
	info := ObjectInfo{
		Key:          filename,
		Size:         stat.Size,
		LastModified: stat.LastModified,
		ContentType:  contentType,
	}
	return object, info, nil
}

// resolveFilename maps an asset kind to the stored filename, listing the
// song folder to find which video file is present.
func (m *minioBackend) resolveFilename(ctx context.Context, id string, kind AssetKind) (string, error) {
	if kind != AssetVideo {
		return AssetFilename(kind, ""), nil
	}
	names, err := m.listSongFiles(ctx, id)
	if err != nil {
		return "", err
	}
	if name := FindVideoFilename(names); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("asset %s/%s.*: %w", id, VideoBasename, ErrNotFound)
}

func (m *minioBackend) Assets(ctx context.Context, id string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.keyPrefix + id + "/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list song %s: %w", id, mapMinioError(object.Err))
		}
		_, filename, ok := m.splitKey(object.Key)
		if !ok {
			continue
		}
		contentType := object.ContentType
		if contentType == "" {
			contentType = ContentTypeFor(filename)
		}
		objects = append(objects, ObjectInfo{
			Key:          filename,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  contentType,
		})
	}
	return objects, nil
}

// listSongFiles returns the filenames stored under one song id.
func (m *minioBackend) listSongFiles(ctx context.Context, id string) ([]string, error) {
	objects, err := m.Assets(ctx, id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Key)
	}
	return names, nil
}

func (m *minioBackend) Put(ctx context.Context, id, filename string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeFor(filename)
	}
	_, err := m.client.PutObject(ctx, m.bucket, m.fullKey(id, filename), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", id, filename, mapMinioError(err))
	}
	if HasVideoExtension(filename) {
		m.removeStaleVideos(ctx, id, filename)
	}
	return nil
}

// removeStaleVideos drops video objects left behind by an earlier upload
// with a different name or container extension. Best effort, the fresh
// video is already in place.
func (m *minioBackend) removeStaleVideos(ctx context.Context, id, keep string) {
	names, err := m.listSongFiles(ctx, id)
	if err != nil {
		logger.Warn("could not check for stale videos",
			logger.String("song", id), logger.ErrorField(err))
		return
	}
	for _, name := range names {
		if name == keep || !HasVideoExtension(name) {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, m.fullKey(id, name), minio.RemoveObjectOptions{}); err != nil {
			logger.Warn("could not remove stale video",
				logger.String("song", id), logger.String("file", name), logger.ErrorField(err))
		}
	}
}

func (m *minioBackend) Delete(ctx context.Context, id string) (int, error) {
	names, err := m.listSongFiles(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(names))
	go func() {
		defer close(objectsCh)
		for _, name := range names {
			objectsCh <- minio.ObjectInfo{Key: m.fullKey(id, name)}
		}
	}()

	failed := 0
	var firstErr error
	errorCh := m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{})
	for removeErr := range errorCh {
		if removeErr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete %s: %w", removeErr.ObjectName, mapMinioError(removeErr.Err))
			}
		}
	}
	return len(names) - failed, firstErr
}

func (m *minioBackend) AssetURL(id, filename string) string {
	if m.publicURL == "" {
		return ""
	}
	return m.publicURL + "/" + m.fullKey(id, filename)
}

// mapMinioError folds S3 error codes into the shared sentinels so callers
// can classify without importing the minio SDK.
func mapMinioError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w (%s)", ErrNotFound, resp.Code)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w (%s)", ErrAuth, resp.Code)
	}
	return err
}
