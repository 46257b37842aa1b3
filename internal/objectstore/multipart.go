package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/ports"
	"golang.org/x/sync/errgroup"
)

const defaultContentType = "application/octet-stream"

// PartPlan is the byte range of one multipart part.
type PartPlan struct {
	Number int32
	Offset int64
	Size   int64
}

// PlanParts splits size bytes into parts of partSize, numbered from 1. The
// last part carries the remainder. It fails when the upload would need
// more parts than the store accepts.
func PlanParts(size, partSize int64) ([]PartPlan, error) {
	if partSize <= 0 {
		return nil, apperr.InvalidArgument("plan parts", "partSize")
	}
	if size <= 0 {
		return nil, nil
	}
	count := (size + partSize - 1) / partSize
	if count > ports.MaxParts {
		return nil, fmt.Errorf("%w: %d parts of %d bytes exceed the limit of %d",
			apperr.ErrTooManyParts, count, partSize, ports.MaxParts)
	}

	plan := make([]PartPlan, count)
	for i := range plan {
		offset := int64(i) * partSize
		n := partSize
		if i == len(plan)-1 {
			n = size - offset
		}
		plan[i] = PartPlan{Number: int32(i + 1), Offset: offset, Size: n}
	}
	return plan, nil
}

// Upload stores src under key. Files up to the single-shot threshold are
// sent with one put; larger files use a multipart upload. An empty key,
// the bucket root, is rejected.
func (s *Session) Upload(ctx context.Context, key string, src ports.LocalFile) error {
	if key == "" {
		return apperr.InvalidArgument("upload", "path")
	}
	contentType := detectContentType(src)
	if src.Size <= s.opts.SingleShotThreshold {
		return s.putSingle(ctx, key, src, contentType)
	}
	return s.putMultipart(ctx, key, src, contentType)
}

func (s *Session) putSingle(ctx context.Context, key string, src ports.LocalFile, contentType string) error {
	f, err := src.Open()
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	if err := s.store.PutObject(ctx, key, f, src.Size, contentType); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *Session) putMultipart(ctx context.Context, key string, src ports.LocalFile, contentType string) error {
	plan, err := PlanParts(src.Size, s.opts.PartSize)
	if err != nil {
		return err
	}

	uploadID, err := s.store.InitiateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return fmt.Errorf("initiate multipart upload: %w", err)
	}
	slog.Debug("multipart upload started",
		slog.String("key", key),
		slog.String("upload_id", uploadID),
		slog.Int("parts", len(plan)),
	)

	var parts []ports.Part
	if s.opts.PartConcurrency > 1 {
		parts, err = s.uploadPartsParallel(ctx, key, uploadID, src, plan)
	} else {
		parts, err = s.uploadParts(ctx, key, uploadID, src, plan)
	}
	if err != nil {
		s.abort(ctx, key, uploadID)
		return err
	}

	if err := s.store.CompleteMultipartUpload(ctx, key, uploadID, parts); err != nil {
		s.abort(ctx, key, uploadID)
		return fmt.Errorf("complete multipart upload: %w", err)
	}
	return nil
}

func (s *Session) uploadParts(ctx context.Context, key, uploadID string, src ports.LocalFile, plan []PartPlan) ([]ports.Part, error) {
	parts := make([]ports.Part, 0, len(plan))
	for _, p := range plan {
		etag, err := s.uploadPart(ctx, key, uploadID, src, p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ports.Part{PartNumber: p.Number, ETag: etag})
	}
	return parts, nil
}

// uploadPartsParallel indexes results by part number so completion order
// does not depend on finishing order. The first failure cancels the rest.
func (s *Session) uploadPartsParallel(ctx context.Context, key, uploadID string, src ports.LocalFile, plan []PartPlan) ([]ports.Part, error) {
	parts := make([]ports.Part, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.PartConcurrency)

	for i, p := range plan {
		g.Go(func() error {
			etag, err := s.uploadPart(gctx, key, uploadID, src, p)
			if err != nil {
				return err
			}
			parts[i] = ports.Part{PartNumber: p.Number, ETag: etag}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// uploadPart reads its range through its own file handle.
func (s *Session) uploadPart(ctx context.Context, key, uploadID string, src ports.LocalFile, p PartPlan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("open part %d: %w", p.Number, err)
	}
	defer f.Close()

	etag, err := s.store.UploadPart(ctx, key, uploadID, p.Number, io.NewSectionReader(f, p.Offset, p.Size), p.Size)
	if err != nil {
		return "", fmt.Errorf("upload part %d: %w", p.Number, err)
	}
	return etag, nil
}

// abort discards a failed upload when any part reached the store. Its own
// failures are logged and never replace the caller's error.
func (s *Session) abort(ctx context.Context, key, uploadID string) {
	ctx = context.WithoutCancel(ctx)
	log := slog.With(slog.String("key", key), slog.String("upload_id", uploadID))

	parts, err := s.store.ListParts(ctx, key, uploadID)
	if err != nil {
		log.Warn("list parts before abort failed", slog.String("error", err.Error()))
	} else if len(parts) == 0 {
		return
	}

	if err := s.store.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		log.Warn("abort multipart upload failed", slog.String("error", err.Error()))
		return
	}
	log.Info("multipart upload aborted", slog.Int("stored_parts", len(parts)))
}

func detectContentType(src ports.LocalFile) string {
	f, err := src.Open()
	if err != nil {
		return defaultContentType
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return defaultContentType
	}
	return mtype.String()
}
