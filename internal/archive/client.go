// Package archive resolves star identifiers to light curves. It queries the
// NASA Exoplanet Archive TAP service for the star's catalogue row and
// synthesises a curve from its transit flag and orbital period. When the
// archive is unreachable or has no match, a reproducible mock curve seeded
// from the identifier is returned instead.
package archive

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"exotransit/internal/common"
	"exotransit/internal/lightcurve"
	"exotransit/internal/storage"
	"exotransit/internal/synth"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// ErrEmptyStarID is returned for identifiers that are blank after sanitising.
var ErrEmptyStarID = errors.New("star id is empty")

// StarData is a resolved star: its catalogue info, where the curve came
// from and the curve itself.
type StarData struct {
	StarID     string
	Info       map[string]any
	Source     string
	LightCurve lightcurve.LightCurve
	FetchedAt  time.Time
}

// Metrics receives archive lookup counters.
type Metrics interface {
	ArchiveRequestInc()
	ArchiveFailureInc()
	ArchiveCacheHitInc()
}

// Cache is the persistent second-level cache. *storage.Store satisfies it.
type Cache interface {
	GetStar(starID string, maxAge time.Duration) (storage.StarRecord, error)
	PutStar(rec storage.StarRecord) error
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
	CacheSize int
}

// Client is safe for concurrent use.
type Client struct {
	rest    *resty.Client
	baseURL string
	ttl     time.Duration
	recent  *lru.Cache[string, StarData]
	store   Cache
	metrics Metrics
}

// NewClient builds a client. store and metrics may be nil.
func NewClient(cfg Config, store Cache, metrics Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = common.DefaultArchiveURL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = common.DefaultArchiveCacheSize
	}

	r := resty.New()
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}

	recent, err := lru.New[string, StarData](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create star cache: %w", err)
	}

	return &Client{
		rest:    r,
		baseURL: cfg.BaseURL,
		ttl:     cfg.CacheTTL,
		recent:  recent,
		store:   store,
		metrics: metrics,
	}, nil
}

// SanitizeStarID turns dashes into spaces, drops quote characters and trims.
func SanitizeStarID(starID string) string {
	clean := strings.ReplaceAll(starID, "-", " ")
	clean = strings.NewReplacer("'", "", `"`, "", "`", "").Replace(clean)
	return strings.TrimSpace(clean)
}

func cacheKey(clean string) string {
	return strings.ToUpper(strings.Join(strings.Fields(clean), " "))
}

// FetchStar resolves starID. Archive failures are absorbed into mock data;
// the only errors are a blank identifier and a cancelled context.
func (c *Client) FetchStar(ctx context.Context, starID string) (StarData, error) {
	starID = strings.TrimSpace(starID)
	clean := SanitizeStarID(starID)
	if clean == "" {
		return StarData{}, ErrEmptyStarID
	}
	if c.metrics != nil {
		c.metrics.ArchiveRequestInc()
	}

	key := cacheKey(clean)
	if data, ok := c.cached(key); ok {
		data.StarID = starID
		return data, nil
	}

	info, err := c.queryStar(ctx, clean)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return StarData{}, ctxErr
		}
		if c.metrics != nil {
			c.metrics.ArchiveFailureInc()
		}
		log.Warn().Err(err).Str("star_id", starID).Msg("archive lookup failed, using generated data")
		return MockStar(starID), nil
	}
	if info == nil {
		log.Info().Str("star_id", starID).Msg("star not found in archive, using generated data")
		return MockStar(starID), nil
	}

	data := StarData{
		StarID:     starID,
		Info:       info,
		Source:     common.SourceArchive,
		LightCurve: synth.FromStar(seededRand(key), floatField(info, "pl_orbper"), intField(info, "pl_tranflag") == 1),
		FetchedAt:  time.Now(),
	}
	c.remember(key, data)
	return data, nil
}

func (c *Client) cached(key string) (StarData, bool) {
	if data, ok := c.recent.Get(key); ok {
		if c.ttl <= 0 || time.Since(data.FetchedAt) <= c.ttl {
			c.cacheHit()
			return data, true
		}
		c.recent.Remove(key)
	}

	if c.store == nil {
		return StarData{}, false
	}
	rec, err := c.store.GetStar(key, c.ttl)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("star cache read failed")
		}
		return StarData{}, false
	}

	data := StarData{
		StarID:     rec.StarID,
		Info:       rec.Info,
		Source:     rec.Source,
		LightCurve: lightcurve.LightCurve{Time: rec.Time, Flux: rec.Flux},
		FetchedAt:  rec.FetchedAt,
	}
	c.recent.Add(key, data)
	c.cacheHit()
	return data, true
}

func (c *Client) cacheHit() {
	if c.metrics != nil {
		c.metrics.ArchiveCacheHitInc()
	}
}

func (c *Client) remember(key string, data StarData) {
	c.recent.Add(key, data)
	if c.store == nil {
		return
	}
	err := c.store.PutStar(storage.StarRecord{
		StarID:    key,
		Source:    data.Source,
		Info:      data.Info,
		Time:      data.LightCurve.Time,
		Flux:      data.LightCurve.Flux,
		FetchedAt: data.FetchedAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("star cache write failed")
	}
}

// seededRand derives a deterministic source from the identifier so the
// same star always yields the same curve.
func seededRand(key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// MockStar returns generated data for a star the archive could not supply.
func MockStar(starID string) StarData {
	host := starID
	if i := strings.Index(starID, "-"); i >= 0 {
		host = starID[:i]
	}
	return StarData{
		StarID: starID,
		Info: map[string]any{
			"pl_name":  starID,
			"hostname": host,
			"source":   common.SourceMockStar,
		},
		Source:     common.SourceMock,
		LightCurve: synth.Basic(seededRand(cacheKey(SanitizeStarID(starID)))),
		FetchedAt:  time.Now(),
	}
}
