package main

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/numsolve"
)

func newTestServer(t *testing.T) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	cfg := numsolve.DefaultConfig()
	cfg.Server.MaxBodyBytes = 4096
	srv := httptest.NewServer(newHandler(cfg, zerolog.New(&logs)))
	t.Cleanup(srv.Close)
	return srv, &logs
}

func postTool(t *testing.T, srv *httptest.Server, body string, accept string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/tool", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTool_JSON(t *testing.T) {
	srv, logs := newTestServer(t)
	resp := postTool(t, srv, `{"tool":"bisection","params":{"expr":"x**2 - 4","a":0,"b":3}}`, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	id := resp.Header.Get("X-Request-ID")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	var out struct {
		Result struct {
			Success bool    `json:"success"`
			Root    float64 `json:"root"`
		} `json:"result"`
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Error)
	assert.True(t, out.Result.Success)
	assert.InDelta(t, 2, out.Result.Root, 1e-5)

	assert.Contains(t, logs.String(), id)
	assert.Contains(t, logs.String(), `"path":"/tool"`)
}

func TestTool_CBOR(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postTool(t, srv, `{"tool":"evaluate","params":{"expr":"2**10"}}`, "application/cbor")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/cbor", resp.Header.Get("Content-Type"))

	var out struct {
		Result float64 `cbor:"result"`
		String string  `cbor:"string"`
	}
	require.NoError(t, cbor.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1024.0, out.Result)
	assert.Equal(t, "1024", out.String)
}

func TestTool_ToolErrorIsOK(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postTool(t, srv, `{"tool":"evaluate","params":{"expr":"1/0"}}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out["error"], "division by zero")
}

func TestTool_ODEOverflowReportsError(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postTool(t, srv, `{"tool":"euler","params":{"expr":"1e308","x0":0,"y0":0,"h":1,"x_final":2}}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out["error"], "non-finite result")
	assert.NotContains(t, out, "result")
}

func TestWrite_EncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	s := &server{maxBodyBytes: 1024, log: zerolog.New(&logs)}
	req := httptest.NewRequest(http.MethodPost, "/tool", nil)
	rec := httptest.NewRecorder()

	s.write(rec, req, http.StatusOK, map[string]float64{"y": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.Contains(t, logs.String(), "encode response")
}

func TestTool_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"tool":`},
		{"unknown field", `{"tool":"evaluate","params":{},"extra":1}`},
		{"trailing data", `{"tool":"evaluate","params":{}} {}`},
		{"too large", `{"tool":"evaluate","params":{"expr":"` + strings.Repeat("1+", 4096) + `1"}}`},
	}
	srv, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTool(t, srv, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestTool_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/tool")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _ := newTestServer(t)
	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", id)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get("X-Request-ID"))
}

func TestSchema(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/schema")
	require.NoError(t, err)
	defer resp.Body.Close()

	var spec struct {
		Tools []map[string]interface{} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	assert.NotEmpty(t, spec.Tools)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}
