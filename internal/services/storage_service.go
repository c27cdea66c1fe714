package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// StorageService keeps a local cache of media objects so playback and
// downloads can be range-served without a round trip to S3 on every
// request.
type StorageService struct {
	assetsPath string
	s3Service  *S3Service
}

func NewStorageService(assetsPath string, s3Service *S3Service) *StorageService {
	_ = os.MkdirAll(assetsPath, 0o755)
	return &StorageService{assetsPath: assetsPath, s3Service: s3Service}
}

// LocalPath maps a storage key to its path in the local cache
func (s *StorageService) LocalPath(key string) string {
	return filepath.Join(s.assetsPath, filepath.FromSlash(key))
}

// IsCached reports whether a key already exists in the local cache
func (s *StorageService) IsCached(key string) bool {
	info, err := os.Stat(s.LocalPath(key))
	return err == nil && !info.IsDir()
}

// SaveStream writes an incoming stream into the cache and returns absolute
// path, size and checksum. The write goes through a .part file so a
// concurrent reader never sees a half-written object.
func (s *StorageService) SaveStream(ctx context.Context, key string, r io.Reader) (string, int64, string, error) {
	absPath := s.LocalPath(key)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", 0, "", err
	}

	tmp := absPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, "", err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := f.Sync(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	return absPath, n, checksum, nil
}

// EnsureCached pulls an object from the media bucket into the local cache
// if it is not already there, returning the local path.
func (s *StorageService) EnsureCached(ctx context.Context, bucket, key string) (string, error) {
	if s.IsCached(key) {
		return s.LocalPath(key), nil
	}

	buf, err := s.s3Service.DownloadMedia(ctx, bucket, key)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s from storage: %w", key, err)
	}

	path, _, _, err := s.SaveStream(ctx, key, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", err
	}
	return path, nil
}

// ServeFileWithRange serves a cached file with HTTP range support
func (s *StorageService) ServeFileWithRange(w http.ResponseWriter, req *http.Request, absPath, downloadName string) {
	if downloadName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	http.ServeFile(w, req, absPath)
}

// Evict removes a key from the local cache. Missing files are not an error.
func (s *StorageService) Evict(key string) error {
	err := os.Remove(s.LocalPath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
