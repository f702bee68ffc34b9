package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/graph"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/store"
	"github.com/OFFIS-RIT/sciradar/pkg/window"
)

// CacheCorruptionError reports a stored artifact that could not be decoded.
type CacheCorruptionError struct {
	Key string
	Err error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("corrupt snapshot %q: %v", e.Key, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error {
	return e.Err
}

// Key names the artifact of one dataset, network type and window, e.g.
// "zika_2012-1 to 2013-4_authorship".
func Key(dataset string, network common.NetworkType, r window.Range) string {
	return fmt.Sprintf("%s_%s_%s", dataset, r.Label(), network)
}

// Cache memoizes window graphs in a BlobStore.
type Cache struct {
	blobs store.BlobStore
}

func NewCache(blobs store.BlobStore) *Cache {
	return &Cache{blobs: blobs}
}

// Get returns the stored graph for key. A missing artifact yields
// store.ErrNotFound, an undecodable one a *CacheCorruptionError.
func (c *Cache) Get(ctx context.Context, key string) (*graph.Graph, error) {
	data, err := c.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	g := &graph.Graph{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, &CacheCorruptionError{Key: key, Err: err}
	}
	return g, nil
}

// Load is Get with every failure folded into a miss.
func (c *Cache) Load(ctx context.Context, key string) (*graph.Graph, bool) {
	g, err := c.Get(ctx, key)
	if err == nil {
		return g, true
	}

	var corrupt *CacheCorruptionError
	switch {
	case errors.Is(err, store.ErrNotFound):
	case errors.As(err, &corrupt):
		logger.Warn("[Snapshot] Ignoring corrupt artifact", "key", key, "err", err)
	default:
		logger.Warn("[Snapshot] Failed to load artifact", "key", key, "err", err)
	}
	return nil, false
}

func (c *Cache) Store(ctx context.Context, key string, g *graph.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %q: %w", key, err)
	}
	if err := c.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store snapshot %q: %w", key, err)
	}
	return nil
}

// LoadOrCompute returns the cached graph for key when useCache is set and an
// artifact exists. Otherwise it runs compute and stores the result. The
// second return value reports a cache hit. A failed store is logged and does
// not fail the window.
func (c *Cache) LoadOrCompute(
	ctx context.Context,
	key string,
	useCache bool,
	compute func(ctx context.Context) (*graph.Graph, error),
) (*graph.Graph, bool, error) {
	if useCache {
		if g, ok := c.Load(ctx, key); ok {
			logger.Debug("[Snapshot] Cache hit", "key", key)
			return g, true, nil
		}
	}

	g, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := c.Store(ctx, key, g); err != nil {
		logger.Error("[Snapshot] Failed to persist snapshot", "key", key, "err", err)
	}
	return g, false, nil
}
