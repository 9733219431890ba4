package graphcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/graph"
	"egress/internal/model"
)

func smallStack() *model.GridStack {
	grid := model.NewGrid(3, 3)
	return model.NewGridStackFrom(1.0, model.BBox{}, []model.Floor{{ID: "f0"}}, []*model.Grid{grid})
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	c, err := New(1<<20, time.Minute)
	require.NoError(t, err)

	stack := smallStack()
	opts := graph.Options{AllowDiagonal: true}
	key := Key(stack, opts)
	g := graph.Build(stack, opts)

	c.Set(key, Entry{Graph: g, Options: opts}, 1024)
	got, found := c.Get(key)
	require.True(t, found)
	assert.Equal(t, opts, got.Options)
}

func TestCacheMissWhenEmpty(t *testing.T) {
	c, err := New(1<<20, time.Minute)
	require.NoError(t, err)
	_, found := c.Get("nonexistent")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.Metrics().Misses)
}

func TestKeyChangesWithGridContent(t *testing.T) {
	stack := smallStack()
	opts := graph.Options{}
	before := Key(stack, opts)
	stack.Grids[0].Set(1, 1, model.Wall)
	after := Key(stack, opts)
	assert.NotEqual(t, before, after)
}

func TestClearDropsCurrentKey(t *testing.T) {
	c, err := New(1<<20, time.Minute)
	require.NoError(t, err)
	stack := smallStack()
	opts := graph.Options{}
	key := Key(stack, opts)
	g := graph.Build(stack, opts)
	c.Set(key, Entry{Graph: g, Options: opts}, 1024)
	c.Clear()
	_, found := c.Get(key)
	assert.False(t, found)
}
