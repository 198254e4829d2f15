package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MalithGihan/mindmap-service/internal/fetch"
	"github.com/MalithGihan/mindmap-service/internal/metrics"
	"github.com/MalithGihan/mindmap-service/internal/render"
	"github.com/MalithGihan/mindmap-service/internal/store"
)

const mapJSON = `{
  "nodes": [
    {"id": 1, "location": {"x": 0, "y": 0}, "title": {"text": "Root :rocket:", "maxWidth": 80}},
    {"id": 2, "location": {"x": 100, "y": 0}, "title": {"text": "Leaf", "maxWidth": 60}}
  ],
  "connections": [{"startNodeID": 1, "endNodeID": 2, "wayPointOffset": {"x": 50, "y": -30}}]
}`

const danglingJSON = `{
  "nodes": [{"id": "a", "location": {"x": 0, "y": 0}, "title": {"text": "A", "maxWidth": 10}}],
  "connections": [{"startNodeID": "a", "endNodeID": "ghost", "wayPointOffset": {"x": 0, "y": 0}}]
}`

func newTestServer(t *testing.T, policy render.Policy, opts ...func(*Server)) (*httptest.Server, *Server) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	quiet := log.New(io.Discard, "", 0)
	s := &Server{
		Store:     st,
		Renderer:  &render.Renderer{Policy: policy, Logger: quiet},
		Fetcher:   fetch.New(time.Second),
		Metrics:   metrics.NewRegistry(),
		Logger:    quiet,
		FetchWait: 2 * time.Second,
		Export: func(ctx context.Context, svg, format string, w io.Writer) error {
			_, err := io.WriteString(w, format+":"+svg)
			return err
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv, s
}

func postMap(t *testing.T, base, body string) string {
	t.Helper()
	resp, err := http.Post(base+"/maps", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		OK    bool   `json:"ok"`
		MapID string `json:"mapId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.OK)
	return out.MapID
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"service":"mindmap-service"}`, body)
}

func TestStoredMapRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	id := postMap(t, srv.URL, mapJSON)

	resp, body := get(t, srv.URL+"/maps/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"startNodeID":"1"`)

	resp, body = get(t, srv.URL+"/maps/"+id+"/svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `viewBox="-150 -150 400 300"`)
	assert.Contains(t, body, `d="M 0 0 Q 50 -30 , 100 0"`)
	assert.NotContains(t, body, ":rocket:")

	resp, body = get(t, srv.URL+"/maps/"+id+"/page")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))

	resp, body = get(t, srv.URL+"/maps/"+id+"/png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "png:<svg"))
}

func TestCreateMapRejectsMalformedPayload(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	resp, err := http.Post(srv.URL+"/maps", "application/json", strings.NewReader(`{"nodes":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownMapAndFormat(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	resp, _ := get(t, srv.URL+"/maps/8d8c1f38-4f0b-4f7b-9d2e-1a2b3c4d5e6f/svg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := postMap(t, srv.URL, mapJSON)
	resp, _ = get(t, srv.URL+"/maps/"+id+"/gif")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageExportDisabled(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip, func(s *Server) { s.Export = nil })
	id := postMap(t, srv.URL, mapJSON)

	resp, _ := get(t, srv.URL+"/maps/"+id+"/jpg")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestDanglingReferencePolicies(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	id := postMap(t, srv.URL, danglingJSON)
	resp, body := get(t, srv.URL+"/maps/"+id+"/svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "mindmap-connection")
	assert.Contains(t, body, "mindmap-node")

	strict, _ := newTestServer(t, render.PolicyStrict)
	id = postMap(t, strict.URL, danglingJSON)
	resp, body = get(t, strict.URL+"/maps/"+id+"/svg")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `unknown node "ghost"`)
}

func TestRenderRemote(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	id := postMap(t, srv.URL, mapJSON)

	resp, body := get(t, srv.URL+"/render?url="+srv.URL+"/maps/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Mindmap-Error"))
	assert.Contains(t, body, `viewBox="-150 -150 400 300"`)

	resp, body = get(t, srv.URL+"/render?format=html&url="+srv.URL+"/maps/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<title>")
}

func TestRenderRemoteFailureRendersEmptyMap(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)

	resp, body := get(t, srv.URL+"/render?url="+srv.URL+"/maps/8d8c1f38-4f0b-4f7b-9d2e-1a2b3c4d5e6f")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dataset unavailable", resp.Header.Get("X-Mindmap-Error"))
	assert.Contains(t, body, `viewBox="0 0 0 0"`)
	assert.NotContains(t, body, "mindmap-node")

	resp, _ = get(t, srv.URL+"/render")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRenderRemoteRejectsNonHTTPURLs(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)

	for _, target := range []string{"file:///etc/passwd", "gopher://localhost:6379/_INFO", "/maps/x", "http://"} {
		resp, _ := get(t, srv.URL+"/render?url="+neturl.QueryEscape(target))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestRenderRemoteAllowedHosts(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip, func(s *Server) { s.AllowedHosts = []string{"maps.example.com"} })
	id := postMap(t, srv.URL, mapJSON)
	resp, _ := get(t, srv.URL+"/render?url="+neturl.QueryEscape(srv.URL+"/maps/"+id))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	srv, _ = newTestServer(t, render.PolicySkip, func(s *Server) { s.AllowedHosts = []string{"maps.example.com", "127.0.0.1"} })
	id = postMap(t, srv.URL, mapJSON)
	resp, body := get(t, srv.URL+"/render?url="+neturl.QueryEscape(srv.URL+"/maps/"+id))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mindmap-node")
}

func TestRenderRemotePublicFetcherRefusesLoopback(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip, func(s *Server) { s.Fetcher = fetch.NewPublic(time.Second) })
	id := postMap(t, srv.URL, mapJSON)

	resp, body := get(t, srv.URL+"/render?url="+neturl.QueryEscape(srv.URL+"/maps/"+id))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dataset unavailable", resp.Header.Get("X-Mindmap-Error"))
	assert.NotContains(t, resp.Header.Get("X-Mindmap-Error"), "127.0.0.1")
	assert.Contains(t, body, `viewBox="0 0 0 0"`)
	assert.NotContains(t, body, "mindmap-node")
}

func TestImportDrawIO(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "plan.drawio")
	require.NoError(t, err)
	io.WriteString(fw, `<mxfile><diagram><mxGraphModel><root>
		<mxCell id="0"/><mxCell id="1" parent="0"/>
		<mxCell id="a" value="A" vertex="1" parent="1"><mxGeometry x="0" y="0" width="100" height="50" as="geometry"/></mxCell>
		<mxCell id="b" value="B" vertex="1" parent="1"><mxGeometry x="200" y="0" width="100" height="50" as="geometry"/></mxCell>
		<mxCell id="e" edge="1" source="a" target="b" parent="1"><mxGeometry relative="1" as="geometry"/></mxCell>
	</root></mxGraphModel></diagram></mxfile>`)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/import/drawio", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		MapID string `json:"mapId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	_, svg := get(t, srv.URL+"/maps/"+out.MapID+"/svg")
	assert.Contains(t, svg, `d="M 50 25 Q 150 25 , 250 25"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, render.PolicySkip)
	id := postMap(t, srv.URL, mapJSON)
	get(t, srv.URL+"/maps/"+id+"/svg")

	_, body := get(t, srv.URL+"/metrics")
	assert.Contains(t, body, `mindmap_renders_total{format="svg",status="ok"} 1`)
	assert.Contains(t, body, `route="/maps/{id}/{format}"`)
}
