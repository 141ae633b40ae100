package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gohttp "github.com/km-arc/go-container/http"
	"github.com/km-arc/go-container/http/validation"
)

func TestRequest_Query(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/services?status=removed&tag=a&tag=b", nil)
	req := gohttp.NewRequest(r)

	assert.Equal(t, "removed", req.Query("status"))
	assert.Equal(t, "fallback", req.Query("missing", "fallback"))
	assert.Equal(t, map[string]string{"status": "removed", "tag": "a"}, req.QueryAll())
	assert.Equal(t, http.MethodGet, req.Method())
	assert.Equal(t, "/services", req.Path())
	assert.Same(t, r, req.Raw())
}

func TestRequest_WantsYAML(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?format=yaml", nil)
	assert.True(t, gohttp.NewRequest(r).WantsYAML())

	r = httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("Accept", "application/yaml")
	assert.True(t, gohttp.NewRequest(r).WantsYAML())

	r = httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.False(t, gohttp.NewRequest(r).WantsYAML())
}

func TestRequest_Bind(t *testing.T) {
	var body struct {
		Keys []string `json:"keys"`
	}

	r := httptest.NewRequest(http.MethodPost, "/warm", strings.NewReader(`{"keys":["a","b"]}`))
	r.Header.Set("Content-Type", "application/json")
	require.NoError(t, gohttp.NewRequest(r).Bind(&body))
	assert.Equal(t, []string{"a", "b"}, body.Keys)

	r = httptest.NewRequest(http.MethodPost, "/warm", strings.NewReader(""))
	assert.NoError(t, gohttp.NewRequest(r).Bind(&body), "empty body is allowed")

	r = httptest.NewRequest(http.MethodPost, "/warm", strings.NewReader("keys=a"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Error(t, gohttp.NewRequest(r).Bind(&body))
}

func TestResponse_Helpers(t *testing.T) {
	rec := httptest.NewRecorder()
	gohttp.NewResponse(rec).NotFound()
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not found."}`, rec.Body.String())

	rec = httptest.NewRecorder()
	gohttp.NewResponse(rec).Problem(http.StatusGone, "gone", map[string]any{"reason": "inlined"})
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.JSONEq(t, `{"message":"gone","reason":"inlined"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	v := validation.Make(map[string]string{}, validation.Rules{"key": "required"})
	require.True(t, v.Fails())
	gohttp.NewResponse(rec).ValidationError(v.Errors())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"errors":{"key":["The key field is required."]}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	gohttp.NewResponse(rec).ServerError()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
