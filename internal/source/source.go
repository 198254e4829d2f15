package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/MalithGihan/mindmap-service/internal/metrics"
	"github.com/MalithGihan/mindmap-service/internal/validate"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

var (
	// ErrMalformedResponse marks a fetched payload without usable nodes or connections.
	ErrMalformedResponse = errors.New("malformed dataset response")
	// ErrClosed is returned by Wait when the source was closed before it became ready.
	ErrClosed = errors.New("source closed")
)

// FetchError is a transport failure or non-2xx response while loading a remote dataset.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher loads a dataset from a remote resource.
type Fetcher interface {
	FetchDataset(ctx context.Context, url string) (types.Dataset, error)
}

// State is the lifecycle of a Source. Ready is terminal.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Config selects the data origin. When URL is set the static nodes and
// connections are ignored.
type Config struct {
	URL         string
	Nodes       []types.Node
	Connections []types.Connection
}

type Option func(*Source)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Registry) Option { return func(s *Source) { s.metrics = m } }

type snapshot struct {
	ds  types.Dataset
	err error
}

// Source resolves one dataset, at most once, and publishes it atomically.
// A different URL or static dataset needs a new Source.
type Source struct {
	cfg     Config
	fetcher Fetcher
	logger  *log.Logger
	metrics *metrics.Registry

	start  sync.Once
	mu     sync.Mutex
	closed bool
	snap   atomic.Pointer[snapshot]
	ready  chan struct{}
	done   chan struct{}
}

// New validates cfg once and returns an uninitialized source.
func New(cfg Config, f Fetcher, opts ...Option) (*Source, error) {
	if cfg.URL == "" {
		if err := validate.Dataset(cfg.Nodes, cfg.Connections); err != nil {
			return nil, fmt.Errorf("invalid dataset: %w", err)
		}
	} else if f == nil {
		return nil, errors.New("a fetcher is required when a URL is set")
	}
	s := &Source{
		cfg:     cfg,
		fetcher: f,
		logger:  log.Default(),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start resolves the dataset. Only the first call has any effect: with a URL it
// starts one background fetch, otherwise it publishes the static data.
func (s *Source) Start(ctx context.Context) {
	s.start.Do(func() {
		if s.cfg.URL == "" {
			s.publish(types.NewDataset(s.cfg.Nodes, s.cfg.Connections), nil)
			return
		}
		go s.fetch(ctx)
	})
}

func (s *Source) fetch(ctx context.Context) {
	ds, err := s.fetcher.FetchDataset(ctx, s.cfg.URL)
	if err != nil {
		s.logger.Printf("source: loading %s failed: %v", s.cfg.URL, err)
		s.recordFetch("error")
		// Degrade to an empty but ready map.
		s.publish(types.NewDataset(nil, nil), err)
		return
	}
	s.recordFetch("ok")
	s.publish(types.NewDataset(ds.Nodes, ds.Connections), nil)
}

func (s *Source) recordFetch(status string) {
	if s.metrics != nil {
		s.metrics.RecordFetch(status)
	}
}

func (s *Source) publish(ds types.Dataset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.snap.Store(&snapshot{ds: ds, err: err})
	close(s.ready)
}

// Snapshot returns the published dataset, or a dataset that is not ready yet.
func (s *Source) Snapshot() types.Dataset {
	if p := s.snap.Load(); p != nil {
		return p.ds
	}
	return types.Dataset{}
}

func (s *Source) State() State {
	if s.snap.Load() != nil {
		return Ready
	}
	return Uninitialized
}

// Err returns the failure the source degraded from, if any.
func (s *Source) Err() error {
	if p := s.snap.Load(); p != nil {
		return p.err
	}
	return nil
}

// Wait blocks until the source is ready, ctx is done or the source is closed.
func (s *Source) Wait(ctx context.Context) (types.Dataset, error) {
	if p := s.snap.Load(); p != nil {
		return p.ds, p.err
	}
	select {
	case <-s.ready:
		p := s.snap.Load()
		return p.ds, p.err
	case <-s.done:
		return types.Dataset{}, ErrClosed
	case <-ctx.Done():
		return types.Dataset{}, ctx.Err()
	}
}

// Close tears the source down. A fetch that completes afterwards is discarded.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
