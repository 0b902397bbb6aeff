package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fetalscan/internal/config"
	"fetalscan/internal/domain"
	"fetalscan/internal/repository"
	"fetalscan/pkg/utils"
)

type UploadService interface {
	Save(ctx context.Context, originalName string, content io.Reader) (*domain.Upload, error)
	Release(upload *domain.Upload)
	Sweep(maxAge time.Duration) (int, error)
}

type uploadService struct {
	archive repository.ArchiveRepository
	cfg     *config.AppConfig
	log     *zap.Logger
	now     func() time.Time
}

// NewUploadService stores uploads under cfg.UploadDir. archive may be nil.
func NewUploadService(archive repository.ArchiveRepository, cfg *config.AppConfig, log *zap.Logger) UploadService {
	return &uploadService{
		archive: archive,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

func (s *uploadService) Save(ctx context.Context, originalName string, content io.Reader) (*domain.Upload, error) {
	uploadID := uuid.New().String()
	filename := utils.StoredFilename(originalName)
	path := filepath.Join(s.cfg.UploadDir, uploadID+"-"+filename)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	size, err := io.Copy(file, io.MultiReader(bytes.NewReader(head), content))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	upload := &domain.Upload{
		ID:           uploadID,
		OriginalName: originalName,
		Filename:     filename,
		LocalPath:    path,
		Size:         size,
		ContentType:  utils.SniffContentType(head, utils.Extension(filename)),
		UploadedAt:   s.now(),
	}

	s.log.Info("Upload saved",
		zap.String("id", uploadID),
		zap.String("filename", filename),
		zap.Int64("size", size))

	if s.archive != nil {
		if err := s.archiveUpload(ctx, upload); err != nil {
			s.log.Warn("Failed to archive upload",
				zap.String("id", uploadID),
				zap.Error(err))
		}
	}

	return upload, nil
}

func (s *uploadService) archiveUpload(ctx context.Context, upload *domain.Upload) error {
	file, err := os.Open(upload.LocalPath)
	if err != nil {
		return err
	}
	defer file.Close()

	key := ArchiveKey(upload)
	if err := s.archive.UploadFile(ctx, key, file, upload.Size, upload.ContentType); err != nil {
		return err
	}
	upload.ArchiveKey = key
	return nil
}

// ArchiveKey is scans/<yyyy>/<mm>/<dd>/<id><ext>, dated in UTC.
func ArchiveKey(upload *domain.Upload) string {
	ext := filepath.Ext(upload.Filename)
	return "scans/" + upload.UploadedAt.UTC().Format("2006/01/02") + "/" + upload.ID + ext
}

func (s *uploadService) Release(upload *domain.Upload) {
	if upload == nil || upload.LocalPath == "" {
		return
	}
	if err := os.Remove(upload.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("Failed to remove upload",
			zap.String("path", upload.LocalPath),
			zap.Error(err))
		return
	}
	s.log.Debug("Upload removed", zap.String("path", upload.LocalPath))
}

// Sweep removes regular files in the upload directory older than maxAge.
func (s *uploadService) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.cfg.UploadDir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Error("Failed to remove stale upload",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("Stale uploads removed",
			zap.Int("count", removed),
			zap.String("upload_dir", s.cfg.UploadDir))
	}

	return removed, nil
}
