package portfoliocms_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/repo/memory"
	memorystorage "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/storage/memory"
)

func setupMediaService(t *testing.T, opts ...portfoliocms.Option) (portfoliocms.MediaService, *memorystorage.Backend) {
	t.Helper()
	store := memorystorage.New()
	options := append([]portfoliocms.Option{
		portfoliocms.WithRepository(memory.New()),
		portfoliocms.WithBlobStore(store),
		portfoliocms.WithPublicBaseURL("https://cms.example.com/"),
	}, opts...)

	svc, err := portfoliocms.NewMediaService(options...)
	require.NoError(t, err)
	return svc, store
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadMediaWithThumbnail(t *testing.T) {
	svc, store := setupMediaService(t, portfoliocms.WithThumbnailSize(16))
	ctx := context.Background()

	data := pngImage(t, 64, 32)
	media, err := svc.UploadMedia(ctx, portfoliocms.UploadMediaRequest{
		FileName: "../../logo.png",
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, "logo.png", media.OriginalName)
	assert.Equal(t, media.ID.String()+".png", media.FileName)
	assert.Equal(t, "homepage/"+media.FileName, media.StorageKey)
	assert.Equal(t, "https://cms.example.com/uploads/homepage/"+media.FileName, media.URL)
	assert.Equal(t, int64(len(data)), media.Size)
	require.NotEmpty(t, media.ThumbnailKey)
	assert.True(t, strings.HasSuffix(media.ThumbnailURL, ".jpg"))

	rc, meta, err := svc.OpenMedia(ctx, media.ThumbnailKey)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/jpeg", meta.ContentType)
	thumb, _, err := image.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, 16, thumb.Bounds().Dx())
	assert.Equal(t, 8, thumb.Bounds().Dy())

	rc2, _, err := svc.OpenMedia(ctx, media.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc2)
	require.NoError(t, err)
	rc2.Close()
	assert.Equal(t, data, stored)

	_, err = svc.MediaURL(ctx, media.StorageKey)
	assert.ErrorIs(t, err, portfoliocms.ErrNoDirectURL)

	listed, err := svc.ListMedia(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, media.ID, listed[0].ID)

	require.NoError(t, svc.DeleteMedia(ctx, media.ID))
	_, err = store.GetObjectMeta(ctx, media.StorageKey)
	assert.ErrorIs(t, err, portfoliocms.ErrObjectNotFound)
	_, err = store.GetObjectMeta(ctx, media.ThumbnailKey)
	assert.ErrorIs(t, err, portfoliocms.ErrObjectNotFound)

	_, err = svc.GetMedia(ctx, media.ID)
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
	err = svc.DeleteMedia(ctx, media.ID)
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
}

func TestUploadMediaRejections(t *testing.T) {
	svc, _ := setupMediaService(t, portfoliocms.WithMaxUploadBytes(1024))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     portfoliocms.UploadMediaRequest
		message string
	}{
		{
			name:    "missing reader",
			req:     portfoliocms.UploadMediaRequest{FileName: "a.png"},
			message: "No file uploaded",
		},
		{
			name:    "declared size too large",
			req:     portfoliocms.UploadMediaRequest{FileName: "a.png", Size: 4096, Reader: strings.NewReader("x")},
			message: "File too large",
		},
		{
			name:    "actual size too large",
			req:     portfoliocms.UploadMediaRequest{FileName: "a.png", Reader: bytes.NewReader(make([]byte, 2048))},
			message: "File too large",
		},
		{
			name:    "unsupported type",
			req:     portfoliocms.UploadMediaRequest{FileName: "notes.txt", Reader: strings.NewReader("plain text notes")},
			message: "Unsupported file type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadMedia(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, portfoliocms.KindValidation, portfoliocms.KindOf(err))
			assert.Equal(t, tt.message, portfoliocms.MessageOf(err))
		})
	}

	listed, err := svc.ListMedia(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUploadMediaSkipsThumbnailAbovePixelLimit(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	svc, _ := setupMediaService(t,
		portfoliocms.WithThumbnailPixelLimit(1000),
		portfoliocms.WithLogger(logger),
	)
	ctx := context.Background()

	data := pngImage(t, 64, 32)
	media, err := svc.UploadMedia(ctx, portfoliocms.UploadMediaRequest{
		FileName: "huge.png",
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Empty(t, media.ThumbnailKey)
	assert.Empty(t, media.ThumbnailURL)
	assert.Contains(t, logs.String(), "thumbnail generation failed")
	assert.Contains(t, logs.String(), "64x32 exceeds 1000 pixels")

	_, _, err = svc.OpenMedia(ctx, "homepage/thumbnails/"+media.ID.String()+".jpg")
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))

	rc, _, err := svc.OpenMedia(ctx, media.StorageKey)
	require.NoError(t, err)
	rc.Close()
}

func TestUploadSVGSkipsThumbnail(t *testing.T) {
	svc, _ := setupMediaService(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`

	media, err := svc.UploadMedia(context.Background(), portfoliocms.UploadMediaRequest{
		FileName: "mark.svg",
		Reader:   strings.NewReader(svg),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", media.MimeType)
	assert.Empty(t, media.ThumbnailKey)
	assert.Empty(t, media.ThumbnailURL)
}

func TestOpenMediaOutsidePrefix(t *testing.T) {
	svc, store := setupMediaService(t)
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "private/secret.txt", strings.NewReader("secret")))

	for _, key := range []string{"private/secret.txt", "homepage/../private/secret.txt", "../private/secret.txt"} {
		_, _, err := svc.OpenMedia(ctx, key)
		assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err), key)
	}

	_, _, err := svc.OpenMedia(ctx, "homepage/"+uuid.NewString()+".png")
	assert.Equal(t, portfoliocms.KindNotFound, portfoliocms.KindOf(err))
}
