package evcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// SolutionCache stores solutions of already solved instances. Solving the
// same inputs again yields the same objective, so a hit can be reused.
type SolutionCache interface {
	Get(ctx context.Context, key string) (*EVCSSolution, bool, error)
	Put(ctx context.Context, key string, sol *EVCSSolution) error
}

// CacheKey hashes everything that determines the model: nodes in order,
// demands, distances and params. Map iteration order does not matter.
func CacheKey(nodes []Node, demand DemandMap, dist DistanceMatrix, params Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "params %v %d %v %v\n", params.CoverageDistance, params.MaxStations, params.FixedCost, params.VariableCost)
	for _, n := range nodes {
		fmt.Fprintf(h, "node %q %v\n", n, demand[n])
	}
	arcs := make([]Arc, 0, len(dist))
	for p, d := range dist {
		arcs = append(arcs, Arc{From: p.From, To: p.To, Dist: d})
	}
	sort.Slice(arcs, func(a, b int) bool {
		if arcs[a].From != arcs[b].From {
			return arcs[a].From < arcs[b].From
		}
		return arcs[a].To < arcs[b].To
	})
	for _, a := range arcs {
		fmt.Fprintf(h, "dist %q %q %v\n", a.From, a.To, a.Dist)
	}
	return "evcs:solution:" + hex.EncodeToString(h.Sum(nil))
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*EVCSSolution, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var sol EVCSSolution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, false, fmt.Errorf("decode cached solution %s: %w", key, err)
	}
	return &sol, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, sol *EVCSSolution) error {
	data, err := json.Marshal(sol)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
