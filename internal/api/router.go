package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MalithGihan/mindmap-service/internal/export"
	"github.com/MalithGihan/mindmap-service/internal/fetch"
	"github.com/MalithGihan/mindmap-service/internal/ingest"
	"github.com/MalithGihan/mindmap-service/internal/metrics"
	"github.com/MalithGihan/mindmap-service/internal/render"
	"github.com/MalithGihan/mindmap-service/internal/source"
	"github.com/MalithGihan/mindmap-service/internal/store"
	"github.com/MalithGihan/mindmap-service/internal/validate"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

const maxUpload = 16 << 20

// ExportFunc rasterises an SVG document.
type ExportFunc func(ctx context.Context, svg, format string, w io.Writer) error

// ChromeExport rasterises through headless Chrome.
var ChromeExport ExportFunc = export.Image

// Server wires the store, data sources and renderer to HTTP routes.
type Server struct {
	Store    *store.FS
	Renderer *render.Renderer
	Fetcher  source.Fetcher
	Metrics  *metrics.Registry
	Logger   *log.Logger

	// Export is nil when raster export is disabled.
	Export ExportFunc
	// FetchWait bounds how long /render waits for a remote dataset.
	FetchWait time.Duration
	// AllowedHosts limits /render to these hosts when non-empty.
	AllowedHosts []string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"mindmap-service"}`))
	})

	r.Post("/maps", s.createMap)
	r.Get("/maps/{id}", s.getMap)
	r.Get("/maps/{id}/{format}", s.renderStored)
	r.Get("/render", s.renderRemote)
	r.Post("/import/drawio", s.importDrawIO)

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
	return r
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) createMap(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ds, err := validate.DecodePayload(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.save(w, ds)
}

func (s *Server) save(w http.ResponseWriter, ds types.Dataset) {
	id, err := s.Store.Save(ds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "mapId": id})
}

func (s *Server) getMap(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) load(w http.ResponseWriter, id string) (types.Dataset, bool) {
	ds, err := s.Store.Load(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "map not found", http.StatusNotFound)
		return ds, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return ds, false
	}
	return ds, true
}

func (s *Server) renderStored(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := formatOf(chi.URLParam(r, "format"))
	if format == "" {
		http.Error(w, "unknown format", http.StatusNotFound)
		return
	}
	stored, ok := s.load(w, id)
	if !ok {
		return
	}
	src, err := source.New(source.Config{Nodes: stored.Nodes, Connections: stored.Connections}, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer src.Close()
	src.Start(r.Context())
	s.render(w, r, src.Snapshot(), format, "Mind map "+id)
}

func (s *Server) renderRemote(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	u, err := fetch.CheckURL(url)
	if err != nil {
		http.Error(w, "url must be an absolute http or https URL", http.StatusBadRequest)
		return
	}
	if !s.hostAllowed(u.Hostname()) {
		http.Error(w, "host not allowed", http.StatusForbidden)
		return
	}
	format := formatOf(r.URL.Query().Get("format"))
	if format == "" {
		format = "svg"
	}
	src, err := source.New(source.Config{URL: url}, s.Fetcher, source.WithLogger(s.Logger), source.WithMetrics(s.Metrics))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer src.Close()

	ctx := r.Context()
	if s.FetchWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchWait)
		defer cancel()
	}
	src.Start(ctx)
	if _, err := src.Wait(ctx); err != nil {
		// The map still renders, empty. Details stay in the server log.
		s.logf("api: render %s: %v", url, err)
		w.Header().Set("X-Mindmap-Error", "dataset unavailable")
	}
	s.render(w, r, src.Snapshot(), format, url)
}

func (s *Server) hostAllowed(host string) bool {
	if len(s.AllowedHosts) == 0 {
		return true
	}
	for _, h := range s.AllowedHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func (s *Server) importDrawIO(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ds, err := ingest.Import(fh.Filename, b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.save(w, ds)
}

func formatOf(s string) string {
	switch f := strings.ToLower(s); f {
	case "svg", "html", "png", "jpg", "jpeg":
		return f
	case "page":
		return "html"
	}
	return ""
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, ds types.Dataset, format, title string) {
	start := time.Now()
	status := "ok"
	defer func() {
		if s.Metrics != nil {
			s.Metrics.RecordRender(format, status, time.Since(start))
		}
	}()

	frame, err := s.Renderer.Render(ds)
	if err != nil {
		status = "error"
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	switch format {
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		err = render.WriteSVG(&buf, frame)
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = render.WriteHTML(&buf, title, frame)
	default:
		if s.Export == nil {
			status = "error"
			http.Error(w, "image export is disabled", http.StatusNotImplemented)
			return
		}
		err = s.Export(r.Context(), render.SVG(frame), format, &buf)
		if format == "png" {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "image/jpeg")
		}
	}
	if err != nil {
		status = "error"
		s.logf("api: rendering %s failed: %v", format, err)
		w.Header().Del("Content-Type")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(buf.Bytes())
}
