package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MalithGihan/mindmap-service/internal/api"
	"github.com/MalithGihan/mindmap-service/internal/fetch"
	"github.com/MalithGihan/mindmap-service/internal/metrics"
	"github.com/MalithGihan/mindmap-service/internal/render"
	"github.com/MalithGihan/mindmap-service/internal/store"
)

func main() {
	_ = godotenv.Load()
	port := getenv("PORT", "8081")
	dataRoot := getenv("DATA_ROOT", "./maps")
	fetchTimeout := getDuration("FETCH_TIMEOUT", 10*time.Second)

	st, err := store.New(dataRoot)
	if err != nil {
		log.Fatal(err)
	}

	reg := metrics.DefaultRegistry()
	renderer := &render.Renderer{Metrics: reg}
	if getBool("RENDER_STRICT", false) {
		renderer.Policy = render.PolicyStrict
	}

	// Remote maps come from public addresses unless explicitly opened up.
	fetcher := fetch.NewPublic(fetchTimeout)
	if getBool("RENDER_ALLOW_PRIVATE", false) {
		fetcher = fetch.New(fetchTimeout)
	}

	srv := &api.Server{
		Store:        st,
		Renderer:     renderer,
		Fetcher:      fetcher,
		Metrics:      reg,
		FetchWait:    fetchTimeout,
		AllowedHosts: getList("RENDER_ALLOWED_HOSTS"),
	}
	if getBool("CHROME_EXPORT", true) {
		srv.Export = api.ChromeExport
	}

	log.Printf("mindmap-service listening on :%s (dangling references: %s)", port, renderer.Policy)
	log.Fatal(http.ListenAndServe(":"+port, srv.Routes()))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getList(k string) []string {
	var out []string
	for _, v := range strings.Split(getenv(k, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getBool(k string, def bool) bool {
	b, err := strconv.ParseBool(getenv(k, strconv.FormatBool(def)))
	if err != nil {
		log.Printf("ignoring %s: %v", k, err)
		return def
	}
	return b
}

func getDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(k, def.String()))
	if err != nil {
		log.Printf("ignoring %s: %v", k, err)
		return def
	}
	return d
}
