package portfoliocms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	mediaKeyPrefix     = "homepage/"
	thumbnailKeyPrefix = "homepage/thumbnails/"
)

var errImageTooLarge = errors.New("image too large for thumbnail")

// allowedMediaTypes maps accepted MIME types to whether a thumbnail can be
// generated for them.
var allowedMediaTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    false,
	"image/svg+xml": false,
	"video/mp4":     false,
	"video/webm":    false,
}

// Media operations

func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Media, error) {
	if s.blobStore == nil {
		return nil, &Error{Kind: KindInternal, Op: "upload_media", Message: "No blob store configured"}
	}
	if req.Reader == nil {
		return nil, validationError("upload_media", "No file uploaded",
			FieldViolation{Field: "file", Violation: "required", Message: "file is a required field"})
	}
	if req.Size > s.maxUploadBytes {
		s.metrics.mediaUploads.WithLabelValues("rejected").Inc()
		return nil, s.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(req.Reader, s.maxUploadBytes+1))
	if err != nil {
		return nil, wrap("upload_media", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		s.metrics.mediaUploads.WithLabelValues("rejected").Inc()
		return nil, s.tooLarge()
	}

	mt := mimetype.Detect(data)
	mimeType := strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
	thumbnailable, ok := allowedMediaTypes[mimeType]
	if !ok {
		s.metrics.mediaUploads.WithLabelValues("rejected").Inc()
		return nil, validationError("upload_media", "Unsupported file type",
			FieldViolation{Field: "file", Violation: "mimetype", Message: fmt.Sprintf("%s is not an allowed file type", mimeType)})
	}

	id := uuid.New()
	fileName := id.String() + mt.Extension()
	media := &Media{
		ID:           id,
		FileName:     fileName,
		OriginalName: filepath.Base(req.FileName),
		MimeType:     mimeType,
		Size:         int64(len(data)),
		StorageKey:   mediaKeyPrefix + fileName,
		CreatedAt:    s.now().UTC(),
	}
	media.URL = s.publicURL(media.StorageKey)

	err = s.blobStore.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{
		ObjectKey: media.StorageKey,
		MimeType:  mimeType,
	})
	if err != nil {
		s.metrics.mediaUploads.WithLabelValues("error").Inc()
		return nil, wrap("upload_media", &StorageError{Key: media.StorageKey, Op: "upload", Err: err})
	}

	if thumbnailable {
		if key, err := s.storeThumbnail(ctx, id, data); err != nil {
			s.logger.WarnContext(ctx, "thumbnail generation failed", "media_id", id, "err", err)
		} else {
			media.ThumbnailKey = key
			media.ThumbnailURL = s.publicURL(key)
		}
	}

	if err := s.repository.CreateMedia(ctx, media); err != nil {
		s.removeBlobs(ctx, media)
		s.metrics.mediaUploads.WithLabelValues("error").Inc()
		return nil, wrap("upload_media", err)
	}

	s.metrics.mediaUploads.WithLabelValues("ok").Inc()
	if err := s.eventSink.MediaUploaded(ctx, media); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "media_uploaded", "err", err)
	}
	return media, nil
}

func (s *service) tooLarge() error {
	message := fmt.Sprintf("File too large (max %d MB)", s.maxUploadBytes>>20)
	return validationError("upload_media", "File too large",
		FieldViolation{Field: "file", Violation: "max", Message: message})
}

func (s *service) storeThumbnail(ctx context.Context, id uuid.UUID, data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > s.maxPixels/cfg.Height {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", errImageTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := resize.Thumbnail(s.thumbnailSize, s.thumbnailSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	key := thumbnailKeyPrefix + id.String() + ".jpg"
	if err := s.blobStore.UploadWithParams(ctx, &buf, UploadParams{ObjectKey: key, MimeType: "image/jpeg"}); err != nil {
		return "", &StorageError{Key: key, Op: "upload", Err: err}
	}
	return key, nil
}

func (s *service) ListMedia(ctx context.Context) ([]*Media, error) {
	media, err := s.repository.ListMedia(ctx)
	if err != nil {
		return nil, wrap("list_media", err)
	}
	return media, nil
}

func (s *service) GetMedia(ctx context.Context, id uuid.UUID) (*Media, error) {
	media, err := s.repository.GetMedia(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return nil, notFound("get_media", "Media not found", err)
		}
		return nil, wrap("get_media", err)
	}
	return media, nil
}

// DeleteMedia removes the blob, its thumbnail and the record.
func (s *service) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	media, err := s.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repository.DeleteMedia(ctx, id); err != nil {
		return wrap("delete_media", err)
	}
	s.removeBlobs(ctx, media)

	if err := s.eventSink.MediaDeleted(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "media_deleted", "err", err)
	}
	return nil
}

func (s *service) removeBlobs(ctx context.Context, media *Media) {
	if s.blobStore == nil {
		return
	}
	for _, key := range []string{media.StorageKey, media.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.blobStore.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			s.logger.WarnContext(ctx, "failed to delete blob", "key", key, "err", err)
		}
	}
}

// OpenMedia returns a reader over the blob stored at key. The caller closes it.
func (s *service) OpenMedia(ctx context.Context, key string) (io.ReadCloser, *ObjectMeta, error) {
	key, err := cleanMediaKey(key)
	if err != nil {
		return nil, nil, err
	}
	meta, err := s.blobStore.GetObjectMeta(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, notFound("open_media", "File not found", err)
		}
		return nil, nil, wrap("open_media", err)
	}
	rc, err := s.blobStore.Download(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, notFound("open_media", "File not found", err)
		}
		return nil, nil, wrap("open_media", err)
	}
	return rc, meta, nil
}

func (s *service) MediaURL(ctx context.Context, key string) (string, error) {
	key, err := cleanMediaKey(key)
	if err != nil {
		return "", err
	}
	return s.blobStore.GetPreviewURL(ctx, key)
}

func (s *service) publicURL(key string) string {
	return strings.TrimRight(s.publicBaseURL, "/") + "/uploads/" + key
}

// cleanMediaKey rejects keys outside the homepage prefix.
func cleanMediaKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if !strings.HasPrefix(cleaned, mediaKeyPrefix) {
		return "", notFound("open_media", "File not found", ErrObjectNotFound)
	}
	return cleaned, nil
}
