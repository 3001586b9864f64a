package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang-sentiment-index/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownAsset is returned when no configuration exists for an asset ID.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrInvalidConfig is returned when an asset configuration fails validation.
	ErrInvalidConfig = errors.New("invalid asset config")
)

// AssetConfig is the per-asset static configuration consulted by every
// aggregation stage.
type AssetConfig struct {
	AssetID       string             `yaml:"asset_id" json:"asset_id"`
	DisplayName   string             `yaml:"display_name" json:"display_name"`
	Category      string             `yaml:"category" json:"category"`
	FuturesTicker string             `yaml:"futures_ticker" json:"futures_ticker"`
	ETFTicker     string             `yaml:"etf_ticker" json:"etf_ticker"`
	DriverNames   []string           `yaml:"driver_names" json:"driver_names"`
	DriverWeights map[string]float64 `yaml:"driver_weights" json:"driver_weights"`
	LayerWeights  map[string]float64 `yaml:"layer_weights" json:"layer_weights"`
	Keywords      []string           `yaml:"keywords" json:"keywords"`
}

// AssetSummary is the listing view of an asset configuration.
type AssetSummary struct {
	AssetID       string `json:"asset_id"`
	DisplayName   string `json:"display_name"`
	Category      string `json:"category"`
	FuturesTicker string `json:"futures_ticker"`
	ETFTicker     string `json:"etf_ticker"`
}

// Registry provides access to per-asset configuration.
type Registry interface {
	Get(assetID string) (*AssetConfig, error)
	List() ([]AssetSummary, error)
	Reload() error
}

const cacheKeyAll = "assets:all"

// NewRegistry creates a registry backed by YAML files in the given directory.
// Configs are cached and re-read from disk after the TTL expires, so edits are
// picked up without a restart.
func NewRegistry(assetsDir string, cacheTTL time.Duration, log *logger.Logger) Registry {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &fileRegistry{
		assetsDir: assetsDir,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		logger:    log,
	}
}

type fileRegistry struct {
	assetsDir string
	cache     *gocache.Cache
	logger    *logger.Logger
}

func (r *fileRegistry) Get(assetID string) (*AssetConfig, error) {
	configs, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	cfg, ok := configs[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return cfg, nil
}

func (r *fileRegistry) List() ([]AssetSummary, error) {
	configs, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	summaries := make([]AssetSummary, 0, len(configs))
	for _, cfg := range configs {
		summaries = append(summaries, AssetSummary{
			AssetID:       cfg.AssetID,
			DisplayName:   cfg.DisplayName,
			Category:      cfg.Category,
			FuturesTicker: cfg.FuturesTicker,
			ETFTicker:     cfg.ETFTicker,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].AssetID < summaries[j].AssetID })
	return summaries, nil
}

func (r *fileRegistry) Reload() error {
	r.cache.Delete(cacheKeyAll)
	_, err := r.loadAll()
	return err
}

func (r *fileRegistry) loadAll() (map[string]*AssetConfig, error) {
	if cached, found := r.cache.Get(cacheKeyAll); found {
		return cached.(map[string]*AssetConfig), nil
	}

	entries, err := os.ReadDir(r.assetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets directory %s: %w", r.assetsDir, err)
	}

	configs := make(map[string]*AssetConfig)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(r.assetsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read asset config %s: %w", path, err)
		}
		var cfg AssetConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse asset config %s: %w", path, err)
		}
		if err := Validate(&cfg); err != nil {
			return nil, fmt.Errorf("asset config %s: %w", path, err)
		}
		configs[cfg.AssetID] = &cfg
		if r.logger != nil {
			r.logger.Debug("Loaded asset config", logger.Field("asset", cfg.AssetID))
		}
	}

	r.cache.Set(cacheKeyAll, configs, gocache.DefaultExpiration)
	return configs, nil
}

// Validate checks that an asset configuration is usable by the pipeline.
func Validate(cfg *AssetConfig) error {
	if cfg.AssetID == "" {
		return fmt.Errorf("%w: missing asset_id", ErrInvalidConfig)
	}
	if len(cfg.DriverNames) == 0 {
		return fmt.Errorf("%w: no driver_names", ErrInvalidConfig)
	}
	if len(cfg.DriverWeights) == 0 {
		return fmt.Errorf("%w: no driver_weights", ErrInvalidConfig)
	}
	for driver, w := range cfg.DriverWeights {
		if w <= 0 {
			return fmt.Errorf("%w: driver weight for %s must be positive, got %v", ErrInvalidConfig, driver, w)
		}
	}
	for _, driver := range cfg.DriverNames {
		if _, ok := cfg.DriverWeights[driver]; !ok {
			return fmt.Errorf("%w: driver %s has no weight", ErrInvalidConfig, driver)
		}
	}
	wSent, okSent := cfg.LayerWeights["sentiment"]
	wMacro, okMacro := cfg.LayerWeights["macro"]
	if !okSent || !okMacro {
		return fmt.Errorf("%w: layer_weights must contain sentiment and macro", ErrInvalidConfig)
	}
	if wSent < 0 || wMacro < 0 || wSent+wMacro == 0 {
		return fmt.Errorf("%w: layer weights must be non-negative and not both zero", ErrInvalidConfig)
	}
	return nil
}
