// Package congress resolves which congressional offices should receive a
// constituent's message. It combines the office directory (offices table),
// the per-user resolution cache (user_offices), and the geographic
// resolver for fresh addresses.
package congress

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/geo"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// Resolver maps senders and addresses to recipient offices.
type Resolver struct {
	db  *gorm.DB
	geo *geo.Resolver
}

// NewResolver builds a Resolver on the given database handle and
// geographic resolver.
func NewResolver(db *gorm.DB, g *geo.Resolver) *Resolver {
	return &Resolver{db: db, geo: g}
}

// OfficesForUser returns the offices on file for the user, resolving and
// caching them from the address on first use. An empty result is not an
// error: the address may be unresolvable or cover no seated offices.
func (r *Resolver) OfficesForUser(ctx context.Context, userID, address string) ([]domain.Office, error) {
	ctx, span := otel.Tracer("congress/Resolver").Start(ctx, "OfficesForUser")
	defer span.End()

	cached, err := repo.ListUserOffices(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		span.SetAttributes(
			attribute.Bool("congress.cached", true),
			attribute.Int("congress.offices", len(cached)),
		)
		return cached, nil
	}

	offices, err := r.OfficesForAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(offices) > 0 {
		ids := make([]string, 0, len(offices))
		for _, o := range offices {
			ids = append(ids, o.OfficeID)
		}
		if err := repo.ReplaceUserOffices(ctx, r.db, userID, ids); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(
		attribute.Bool("congress.cached", false),
		attribute.Int("congress.offices", len(offices)),
	)
	return offices, nil
}

// OfficesForAddress resolves the address text and maps the resulting
// jurisdiction to offices. Nothing is persisted, so guests and previews
// use this directly.
func (r *Resolver) OfficesForAddress(ctx context.Context, address string) ([]domain.Office, error) {
	match, ok := r.geo.Resolve(ctx, address)
	if !ok {
		return nil, nil
	}
	return r.officesForMatch(ctx, match)
}

// officesForMatch applies the jurisdiction-to-offices policy:
//
//   - district: that district's House seat plus the state's senators
//   - state: the senators, plus the House seat only when the state has a
//     single active seat (at-large states and delegate territories)
//   - country: nobody; a nationwide scope names no specific recipient
//
// Vacant seats are simply absent from the result.
func (r *Resolver) officesForMatch(ctx context.Context, match *geo.ScopeMatch) ([]domain.Office, error) {
	var offices []domain.Office

	switch match.Level {
	case geo.LevelDistrict:
		house, err := repo.HouseOffice(ctx, r.db, match.State, match.District)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if house != nil {
			offices = append(offices, *house)
		}

	case geo.LevelState:
		houses, err := repo.HouseOfficesForState(ctx, r.db, match.State)
		if err != nil {
			return nil, err
		}
		if len(houses) == 1 {
			offices = append(offices, houses[0])
		}

	case geo.LevelCountry:
		return nil, nil
	}

	senate, err := repo.SenateOffices(ctx, r.db, match.State)
	if err != nil {
		return nil, err
	}
	offices = append(offices, senate...)
	return offices, nil
}
