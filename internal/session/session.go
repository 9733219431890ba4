// Package session is the single-lock owner object spec.md section 9
// replaces process-wide state with: it holds one building's GridStack
// (both the raw, pre-buffer stack and the current buffered stack), the
// supervisory graphcache.Cache, and serializes every grid mutation and
// graph rebuild behind one mutex, per section 5's concurrency model.
package session

import (
	"sync"

	"egress/internal/errs"
	"egress/internal/geometry"
	"egress/internal/graph"
	"egress/internal/graphcache"
	"egress/internal/gridmanager"
	"egress/internal/model"
	"egress/internal/rasterizer"
)

const defaultCacheBytes = 64 << 20

// Session owns one building's grid state and its graph cache.
type Session struct {
	mu sync.Mutex

	raw      *model.GridStack // pre-buffer, as rasterized
	buffered *model.GridStack // after wall buffering

	cache        *graphcache.Cache
	lastExits    []model.Exit
	lastSpaces   []model.Space
	bufferRadius int
}

// New creates an empty session with a fresh graph cache.
func New() (*Session, error) {
	c, err := graphcache.New(defaultCacheBytes, 0)
	if err != nil {
		return nil, errs.Newf(errs.InternalError, "creating graph cache: %v", err).WithCause(err)
	}
	return &Session{cache: c, bufferRadius: 1}, nil
}

// LoadFile rasterizes a geometry source into a fresh grid stack, replacing
// whatever building was previously loaded and invalidating the graph
// cache (spec.md section 4.6).
func (s *Session) LoadFile(src geometry.Source, cellSize float64) (*rasterizer.Result, error) {
	res, err := rasterizer.Rasterize(src, cellSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = res.Stack
	s.buffered = res.Stack.Clone()
	s.lastExits = nil
	s.lastSpaces = nil
	s.cache.Clear()
	s.buffered.MarkDirty()
	return res, nil
}

// requireLoaded returns GraphStateError when no building has been loaded.
func (s *Session) requireLoaded() error {
	if s.buffered == nil {
		return errs.New(errs.GraphStateError, "no building loaded")
	}
	return nil
}

// RawStack returns the pre-buffer grid stack.
func (s *Session) RawStack() *model.GridStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// BufferedStack returns the current (post wall-buffer) grid stack.
func (s *Session) BufferedStack() *model.GridStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered
}

// ApplyWallBuffer re-buffers the current stack at the given radius.
func (s *Session) ApplyWallBuffer(radius int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	s.bufferRadius = radius
	s.buffered = s.raw.Clone()
	gridmanager.ApplyWallBuffer(s.buffered, radius)
	return nil
}

// UpdateCell edits one cell on the raw stack and re-derives buffering.
func (s *Session) UpdateCell(u gridmanager.CellUpdate, bufferRadius int) error {
	return s.BatchUpdateCells([]gridmanager.CellUpdate{u}, bufferRadius)
}

// BatchUpdateCells edits the raw stack, then re-derives the buffered
// stack from scratch at the given radius.
func (s *Session) BatchUpdateCells(updates []gridmanager.CellUpdate, bufferRadius int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return err
	}
	if err := gridmanager.BatchUpdateCells(s.raw, updates, 0); err != nil {
		return errs.Newf(errs.ValidationError, "%v", err).WithCause(err)
	}
	s.bufferRadius = bufferRadius
	s.buffered = s.raw.Clone()
	gridmanager.ApplyWallBuffer(s.buffered, bufferRadius)
	return nil
}

// DetectExits flood-fills door groups on the buffered stack, keeps the
// result on the session and returns it.
func (s *Session) DetectExits() ([]model.Exit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	s.lastExits = gridmanager.DetectExits(s.buffered)
	return s.lastExits, nil
}

// DetectSpaces flood-fills the buffered stack's passable cells into
// spaces.
func (s *Session) DetectSpaces() ([]model.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	s.lastSpaces = gridmanager.DetectSpaces(s.buffered)
	return s.lastSpaces, nil
}

// Graph returns the cached graph for the current buffered stack and
// options, rebuilding only if the dirty flag is set or the cache is
// empty (spec.md section 4.6).
func (s *Session) Graph(opts graph.Options) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoaded(); err != nil {
		return nil, err
	}

	key := graphcache.Key(s.buffered, opts)
	if !s.buffered.ConsumeDirty() {
		if entry, found := s.cache.Get(key); found && entry.Options == opts {
			return entry.Graph, nil
		}
	}

	g := graph.Build(s.buffered, opts)
	s.cache.Set(key, graphcache.Entry{Graph: g, Options: opts}, int64(len(s.buffered.Grids)*s.buffered.Grids[0].Rows*s.buffered.Grids[0].Cols))
	return g, nil
}
