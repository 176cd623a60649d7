package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

func (e testEnv) upload(t *testing.T, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", name, data)
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestMedia_UploadServeAndDelete(t *testing.T) {
	env := setupServer(t)
	data := pngBytes(t, 640, 480)

	w := env.upload(t, "hero.png", data)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var media portfoliocms.Media
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &media))
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, "hero.png", media.OriginalName)
	assert.Equal(t, "http://localhost:8080/uploads/"+media.StorageKey, media.URL)
	assert.NotEmpty(t, media.ThumbnailKey)

	w = env.do(t, http.MethodGet, "/uploads/"+media.StorageKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal(data, w.Body.Bytes()))

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w = env.do(t, http.MethodGet, "/uploads/"+media.StorageKey, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = env.do(t, http.MethodGet, "/uploads/"+media.ThumbnailKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodGet, "/api/media", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []portfoliocms.Media
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)

	w = env.do(t, http.MethodDelete, "/api/media/"+media.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/uploads/"+media.StorageKey, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/media/"+media.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMedia_UploadRejections(t *testing.T) {
	env := setupServer(t, WithMaxUploadBytes(1024))

	w := env.upload(t, "notes.txt", []byte("plain text is not an allowed media type"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported file type", decodeError(t, w).Message)

	req := httptest.NewRequest(http.MethodPost, "/api/media", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/media/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMedia_UploadOutsidePrefixIsNotFound(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodGet, "/uploads/../secrets.txt", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
