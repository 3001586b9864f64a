package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/utils"

	"golang.org/x/time/rate"
)

// HTTPProviderConfig configures the ingestion API client.
type HTTPProviderConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// HTTPProvider fetches signals and quotes from the ingestion API. It implements
// both SignalSource and PriceProvider.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewHTTPProvider creates a rate-limited client for the ingestion API.
func NewHTTPProvider(cfg HTTPProviderConfig, log *logger.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  log,
	}
}

// FetchSignals retrieves all raw observations for an asset and date.
func (p *HTTPProvider) FetchSignals(ctx context.Context, asset string, date time.Time) ([]RawObservation, error) {
	endpoint := fmt.Sprintf("%s/signals?asset=%s&date=%s",
		p.baseURL, url.QueryEscape(asset), utils.FormatDate(date))

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signals: %w", err)
	}

	var observations []RawObservation
	if err := json.Unmarshal(body, &observations); err != nil {
		return nil, fmt.Errorf("malformed signals response: %w", err)
	}
	return observations, nil
}

// FetchQuote retrieves the asset price and return for a date. Returns nil when
// the ingestion API has no quote for that date.
func (p *HTTPProvider) FetchQuote(ctx context.Context, asset string, date time.Time) (*AssetQuote, error) {
	endpoint := fmt.Sprintf("%s/prices?asset=%s&date=%s",
		p.baseURL, url.QueryEscape(asset), utils.FormatDate(date))

	body, err := p.get(ctx, endpoint)
	if err != nil {
		p.logger.Warn("Failed to fetch asset quote", logger.ErrorField(err), logger.Field("asset", asset))
		return nil, nil
	}
	if len(body) == 0 {
		return nil, nil
	}

	var quote AssetQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		p.logger.Warn("Malformed quote response", logger.ErrorField(err), logger.Field("asset", asset))
		return nil, nil
	}
	return &quote, nil
}

func (p *HTTPProvider) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingestion API returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
