package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"dripmate/models"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"go.uber.org/zap"
)

// analysis of the same photo does not change, but the backend may improve
const analysisExpiration = 30 * time.Minute

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, upload models.ImageUpload) (models.ItemAttributes, error)
}

// imageKey caches by content so a renamed file still hits.
type imageKey struct {
	upload models.ImageUpload
	digest string
}

func newImageKey(upload models.ImageUpload) imageKey {
	sum := sha256.Sum256(upload.Data)
	return imageKey{upload: upload, digest: hex.EncodeToString(sum[:])}
}

func (k imageKey) GetCacheKey() string {
	return "analysis:" + k.digest
}

// AnalysisCache sits in front of AnalyzeImage so re-picking a photo in the
// wardrobe form does not cost another vision call.
type AnalysisCache struct {
	cache *cache.LoadableCache[models.ItemAttributes]
}

func NewAnalysisCache(analyzer ImageAnalyzer, logger *zap.Logger) (*AnalysisCache, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (models.ItemAttributes, []store.Option, error) {
		k, ok := key.(imageKey)
		if !ok {
			return models.ItemAttributes{}, nil, fmt.Errorf("invalid key type provided to analysis cache: %T", key)
		}
		logger.Debug("Analysis cache miss", zap.String("key", k.GetCacheKey()))
		attrs, err := analyzer.AnalyzeImage(ctx, k.upload)
		return attrs, []store.Option{store.WithExpiration(analysisExpiration), store.WithCost(1)}, err
	}

	return &AnalysisCache{
		cache: cache.NewLoadable[models.ItemAttributes](
			loadFunction,
			cache.New[models.ItemAttributes](ristrettoStore),
		),
	}, nil
}

func (c *AnalysisCache) AnalyzeImage(ctx context.Context, upload models.ImageUpload) (models.ItemAttributes, error) {
	if len(upload.Data) == 0 {
		return models.ItemAttributes{}, validationError("Please choose an image", nil)
	}
	return c.cache.Get(ctx, newImageKey(upload))
}

func (c *AnalysisCache) Close() error {
	return c.cache.Close()
}
