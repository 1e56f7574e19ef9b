package geo

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// fallbackConfidence is the score attached to the country-level answer used
// when the geocoder is unavailable, over budget, or failed.
const fallbackConfidence = 0.3

// Resolver runs the four resolution layers in strict priority order. It is
// safe for concurrent use; the cache and the call budget are its only
// mutable state.
type Resolver struct {
	cache  *Cache
	geo    Geocoder
	budget *rate.Limiter
}

// NewResolver builds a Resolver around the given cache and geocoder.
// callsPerSecond caps outbound geocoder traffic; values <= 0 fall back to
// one call per second. A nil geocoder disables layer 4 entirely, which is
// how tests and geocoder-less deployments run.
func NewResolver(cache *Cache, geocoder Geocoder, callsPerSecond float64) *Resolver {
	if cache == nil {
		cache = NewCache(24 * time.Hour)
	}
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Resolver{
		cache:  cache,
		geo:    geocoder,
		budget: rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

// Resolve maps free-text location input to a jurisdiction. It reports
// ok=false only for blank input; everything else yields at least the
// low-confidence country fallback, so callers never need an error path.
func (r *Resolver) Resolve(ctx context.Context, text string) (*ScopeMatch, bool) {
	tr := otel.Tracer("geo/Resolver")
	ctx, span := tr.Start(ctx, "Resolve")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	if m := matchPattern(text); m != nil {
		return record(span, m), true
	}
	if m := matchAlias(text); m != nil {
		return record(span, m), true
	}
	if cached, ok := r.cache.Get(text); ok {
		cached.Method = MethodCache
		return record(span, &cached), true
	}

	if r.geo != nil && r.budget.Allow() {
		m, err := r.geo.Geocode(ctx, text)
		if err == nil {
			r.cache.Put(text, *m)
			log.Debug().
				Str("level", string(m.Jurisdiction.Level)).
				Int("cache_entries", r.cache.Len()).
				Msg("geocoder result cached")
			return record(span, m), true
		}
		log.Warn().Err(err).Msg("geocoder lookup failed; falling back to country scope")
	}

	// Budget exhausted, no geocoder, or the call failed. The fallback is
	// deliberately not cached so a later attempt can try the geocoder again.
	return record(span, countryMatch(fallbackConfidence, MethodFallback)), true
}

// record annotates the span and counts the resolution before returning it.
func record(span trace.Span, m *ScopeMatch) *ScopeMatch {
	span.SetAttributes(
		attribute.String("geo.method", string(m.Method)),
		attribute.Float64("geo.confidence", m.Confidence),
		attribute.String("geo.level", string(m.Jurisdiction.Level)),
	)
	geoResolutions.WithLabelValues(string(m.Method)).Inc()
	return m
}
