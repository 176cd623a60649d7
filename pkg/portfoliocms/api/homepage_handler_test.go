package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

func TestHomepage_GetEmptyHasEverySection(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodGet, "/api/homepage", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, section := range portfoliocms.Sections {
		assert.Contains(t, body, string(section))
	}
}

func TestHomepage_UpdateHeroRoundTrip(t *testing.T) {
	env := setupServer(t)
	hero := map[string]string{"title": "A", "description": "1234567890", "videoUrl": ""}

	w := env.do(t, http.MethodPut, "/api/homepage/hero", hero)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/homepage/hero", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title":"A","description":"1234567890","videoUrl":""}`, w.Body.String())
}

func TestHomepage_UpdateSectionValidation(t *testing.T) {
	env := setupServer(t)

	points := make([]map[string]any, 7)
	for i := range points {
		points[i] = map[string]any{"id": i + 1, "text": fmt.Sprintf("Point %d", i+1), "order": i + 1}
	}

	w := env.do(t, http.MethodPut, "/api/homepage/offer", map[string]any{"title": "Offer", "points": points})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "validation_error", body.Code)
	assert.Equal(t, "Maximum 6 offer points allowed", body.Message)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "points", body.Fields[0].Field)

	offer, err := env.content.GetSection(t.Context(), portfoliocms.SectionOffer)
	require.NoError(t, err)
	assert.Empty(t, offer.(portfoliocms.OfferContent).Points)
}

func TestHomepage_UpdateSectionInvalidJSON(t *testing.T) {
	env := setupServer(t)

	w := env.do(t, http.MethodPut, "/api/homepage/hero", "not an object")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decodeError(t, w).Message)
}

func TestHomepage_SectionFields(t *testing.T) {
	env := setupServer(t)
	w := env.do(t, http.MethodPut, "/api/homepage/hero", map[string]string{"title": "Hello", "description": "Long enough text"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/homepage/hero/fields", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fields []portfoliocms.ContentField
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fields))
	require.NotEmpty(t, fields)
	assert.Equal(t, "title", fields[0].FieldName)
	assert.Equal(t, "Hello", fields[0].FieldValue)
}

func TestHomepage_LogoLifecycle(t *testing.T) {
	env := setupServer(t)

	for _, name := range []string{"Acme", "Globex", "Initech"} {
		w := env.do(t, http.MethodPost, "/api/homepage/brands/logos", map[string]string{"name": name, "logoUrl": "/uploads/homepage/" + name + ".png"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodDelete, "/api/homepage/brands/logos/1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/homepage/brands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var brands portfoliocms.BrandsContent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &brands))
	require.Len(t, brands.Logos, 2)
	assert.Equal(t, 2, brands.Logos[0].ID)
	assert.Equal(t, 1, brands.Logos[0].Order)
	assert.Equal(t, 3, brands.Logos[1].ID)
	assert.Equal(t, 2, brands.Logos[1].Order)

	w = env.do(t, http.MethodPut, "/api/homepage/brands/logos/order", ReorderRequest{IDs: []int{3, 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var logos []portfoliocms.Logo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logos))
	require.Len(t, logos, 2)
	assert.Equal(t, 3, logos[0].ID)

	w = env.do(t, http.MethodDelete, "/api/homepage/brands/logos/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/homepage/brands/logos/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHomepage_ReorderRejectsNonPermutation(t *testing.T) {
	env := setupServer(t)
	w := env.do(t, http.MethodPost, "/api/homepage/testimonials/items", map[string]string{
		"text": "Great work on the launch", "clientName": "Jane", "clientTitle": "CEO, Acme",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/homepage/testimonials/items/order", ReorderRequest{IDs: []int{1, 1}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
