package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Geocoder turns a free-text address into a jurisdiction. Implementations
// are expected to be slow and rate-limited; the Resolver shields them behind
// its cache and call budget.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*ScopeMatch, error)
}

// ErrNoResult is returned when the upstream geocoder answered but could not
// place the address in any state.
var ErrNoResult = errors.New("geocoder returned no usable result")

// defaultGeocodeTimeout bounds one Geocode call end to end, retries included.
const defaultGeocodeTimeout = 5 * time.Second

// HTTPGeocoder is a client for a Geocodio-compatible forward-geocoding API
// with congressional-district fields enabled.
type HTTPGeocoder struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a whole Geocode call; defaultGeocodeTimeout when zero.
	Timeout time.Duration
	// Client is the HTTP client to use; http.DefaultClient when nil.
	Client *http.Client
}

// geocodeResponse is the subset of the upstream payload we consume.
type geocodeResponse struct {
	Results []struct {
		AddressComponents struct {
			State string `json:"state"`
		} `json:"address_components"`
		Fields struct {
			CongressionalDistricts []struct {
				DistrictNumber int `json:"district_number"`
			} `json:"congressional_districts"`
		} `json:"fields"`
		Accuracy float64 `json:"accuracy"`
	} `json:"results"`
}

// Geocode resolves address via the upstream API. Transient failures (network
// errors, 429, 5xx) are retried a few times with jitter inside the call
// timeout; anything else fails fast.
func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (*ScopeMatch, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultGeocodeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("fields", "cd")
	if g.APIKey != "" {
		q.Set("api_key", g.APIKey)
	}
	endpoint := strings.TrimSuffix(g.BaseURL, "/") + "/v1.9/geocode?" + q.Encode()

	var match *ScopeMatch
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				// fall through to decode
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("HTTP %d", resp.StatusCode))
			}

			var payload geocodeResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			m, err := payload.toMatch()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			match = m
			return nil
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.MaxJitter(300*time.Millisecond),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	return match, nil
}

// toMatch maps the upstream payload to a ScopeMatch: district level when a
// congressional district is present, state level otherwise.
func (r geocodeResponse) toMatch() (*ScopeMatch, error) {
	if len(r.Results) == 0 {
		return nil, ErrNoResult
	}
	top := r.Results[0]
	state := strings.ToUpper(strings.TrimSpace(top.AddressComponents.State))
	if !ValidStateCode(state) {
		return nil, ErrNoResult
	}

	confidence := top.Accuracy
	if confidence <= 0 {
		confidence = 0.8
	}
	if confidence > 1 {
		confidence = 1
	}

	if cds := top.Fields.CongressionalDistricts; len(cds) > 0 {
		return districtMatch(state, cds[0].DistrictNumber, confidence, MethodGeocoder), nil
	}
	return stateMatch(state, confidence, MethodGeocoder), nil
}
