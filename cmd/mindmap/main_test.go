package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `{
  "nodes": [
    {"id": 1, "location": {"x": 0, "y": 0}, "title": {"text": "A", "maxWidth": 80}},
    {"id": 2, "location": {"x": 100, "y": 0}, "title": {"text": "B", "maxWidth": 80}}
  ],
  "connections": [
    {"startNodeID": 1, "endNodeID": 2, "wayPointOffset": {"x": 50, "y": -30}},
    {"startNodeID": 1, "endNodeID": 9, "wayPointOffset": {"x": 0, "y": 0}}
  ]
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderSVGToStdout(t *testing.T) {
	out, err := execute("render", writeFile(t, "map.json", dataset), "svg")
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="-150 -150 400 300"`)
	assert.Contains(t, out, `d="M 0 0 Q 50 -30 , 100 0"`)
}

func TestRenderHTMLToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "map.html")
	_, err := execute("render", "-o", target, "--title", "Plans", writeFile(t, "map.json", dataset), "HTML")
	require.NoError(t, err)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<title>Plans</title>")
}

func TestRenderStrict(t *testing.T) {
	_, err := execute("render", "--strict", writeFile(t, "map.json", dataset), "svg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "9"`)
}

func TestRenderFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dataset))
	}))
	defer srv.Close()

	out, err := execute("render", "--url", srv.URL, "svg")
	require.NoError(t, err)
	assert.Contains(t, out, "mindmap-connection")
}

func TestRenderFromFailingURLRendersEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	out, err := execute("render", "--url", srv.URL, "svg")
	require.NoError(t, err)
	assert.Contains(t, out, `viewBox="0 0 0 0"`)
}

func TestRenderArgumentErrors(t *testing.T) {
	_, err := execute("render")
	assert.Error(t, err)
	_, err = execute("render", writeFile(t, "map.json", dataset), "gif")
	assert.ErrorContains(t, err, "unsupported export format")
	_, err = execute("render", "missing.json", "svg")
	assert.ErrorContains(t, err, "reading data file")
	_, err = execute("render", "--url", "http://localhost", "map.json", "svg")
	assert.Error(t, err)
}

func TestConvertYAMLThenRender(t *testing.T) {
	src := writeFile(t, "map.yaml", `
nodes:
  - {id: a, location: {x: 0, y: 0}, title: {text: A, maxWidth: 40}}
  - {id: b, location: {x: 100, y: 0}, title: {text: B, maxWidth: 40}}
connections:
  - {startNodeID: a, endNodeID: b, wayPointOffset: {x: 50, y: -30}}
`)
	target := filepath.Join(filepath.Dir(src), "map.json")
	_, err := execute("convert", src, "-o", target)
	require.NoError(t, err)

	out, err := execute("render", target, "svg")
	require.NoError(t, err)
	assert.Contains(t, out, `d="M 0 0 Q 50 -30 , 100 0"`)
}

func TestConvertDrawIOToStdout(t *testing.T) {
	src := writeFile(t, "plan.drawio", `<mxfile><diagram><mxGraphModel><root>
		<mxCell id="0"/><mxCell id="1" parent="0"/>
		<mxCell id="a" value="A" vertex="1" parent="1"><mxGeometry x="0" y="0" width="100" height="50" as="geometry"/></mxCell>
	</root></mxGraphModel></diagram></mxfile>`)

	out, err := execute("import", src)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[{"id":"a","location":{"x":50,"y":25},"title":{"text":"A","maxWidth":100}}],"connections":[]}`, out)
}
