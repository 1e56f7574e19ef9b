package admission

import (
	"context"
	"testing"

	"github.com/tbourn/go-advocacy-backend/internal/domain"
)

// controllerFactory builds a fresh Controller with the given office bucket
// settings. Both store pairs must pass the same behavioral contract.
type controllerFactory func(t *testing.T, rps float64, burst int) *Controller

func admitReq(template, office, user string) AdmitRequest {
	return AdmitRequest{
		TemplateID: template,
		OfficeID:   office,
		Chamber:    domain.ChamberHouse,
		UserID:     user,
		Day:        "2025-06-01",
	}
}

// testAdmissionContract exercises the behavior both store pairs share.
func testAdmissionContract(t *testing.T, build controllerFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("first submission admitted", func(t *testing.T) {
		c := build(t, 10, 10)
		d, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1"))
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if d.Outcome != Admitted {
			t.Fatalf("outcome = %q; want admitted", d.Outcome)
		}
	})

	t.Run("same tuple same day is duplicate", func(t *testing.T) {
		c := build(t, 10, 10)
		if _, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); err != nil {
			t.Fatalf("first Admit: %v", err)
		}
		d, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1"))
		if err != nil {
			t.Fatalf("second Admit: %v", err)
		}
		if d.Outcome != Duplicate {
			t.Fatalf("outcome = %q; want duplicate", d.Outcome)
		}
	})

	t.Run("tuple dimensions are independent", func(t *testing.T) {
		c := build(t, 10, 10)
		if _, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); err != nil {
			t.Fatalf("seed Admit: %v", err)
		}
		fresh := []AdmitRequest{
			admitReq("housing", "H-CA-12", "u1"), // different template
			admitReq("climate", "S-CA-1", "u1"),  // different office
			admitReq("climate", "H-CA-12", "u2"), // different sender
		}
		for _, req := range fresh {
			d, err := c.Admit(ctx, req)
			if err != nil {
				t.Fatalf("Admit %v: %v", req, err)
			}
			if d.Outcome != Admitted {
				t.Fatalf("Admit %v = %q; want admitted", req, d.Outcome)
			}
		}
	})

	t.Run("empty bucket rate limits with retry hint", func(t *testing.T) {
		c := build(t, 0.5, 1) // one token, refill every 2s

		d, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1"))
		if err != nil || d.Outcome != Admitted {
			t.Fatalf("first Admit: outcome=%q err=%v", d.Outcome, err)
		}

		// Different sender, same office: the bucket is per office.
		d, err = c.Admit(ctx, admitReq("climate", "H-CA-12", "u2"))
		if err != nil {
			t.Fatalf("second Admit: %v", err)
		}
		if d.Outcome != RateLimited {
			t.Fatalf("outcome = %q; want rate_limited", d.Outcome)
		}
		if d.RetryAfter <= 0 {
			t.Fatalf("expected positive RetryAfter, got %v", d.RetryAfter)
		}
	})

	t.Run("buckets are per office", func(t *testing.T) {
		c := build(t, 0.5, 1)
		if d, err := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); err != nil || d.Outcome != Admitted {
			t.Fatalf("office A: outcome=%q err=%v", d.Outcome, err)
		}
		// Another office has its own untouched bucket.
		if d, err := c.Admit(ctx, admitReq("climate", "H-NY-3", "u1")); err != nil || d.Outcome != Admitted {
			t.Fatalf("office B: outcome=%q err=%v", d.Outcome, err)
		}
	})

	t.Run("duplicates consume no tokens", func(t *testing.T) {
		c := build(t, 0.5, 2)

		if d, _ := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); d.Outcome != Admitted {
			t.Fatalf("seed admit failed: %q", d.Outcome)
		}
		// Replay the same tuple repeatedly; each is a duplicate and must
		// not touch the bucket.
		for i := 0; i < 3; i++ {
			if d, _ := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); d.Outcome != Duplicate {
				t.Fatalf("replay %d: outcome=%q; want duplicate", i, d.Outcome)
			}
		}
		// The second real token is still there for another sender.
		if d, _ := c.Admit(ctx, admitReq("climate", "H-CA-12", "u2")); d.Outcome != Admitted {
			t.Fatalf("second sender: outcome=%q; want admitted", d.Outcome)
		}
	})

	t.Run("rate limited tuple may retry once tokens refill", func(t *testing.T) {
		c := build(t, 0.5, 1)

		if d, _ := c.Admit(ctx, admitReq("climate", "H-CA-12", "u1")); d.Outcome != Admitted {
			t.Fatalf("seed admit failed: %q", d.Outcome)
		}
		// u2 is rejected by the bucket; the fresh claim must be released
		// so the rejection does not count as u2's daily message.
		if d, _ := c.Admit(ctx, admitReq("climate", "H-CA-12", "u2")); d.Outcome != RateLimited {
			t.Fatalf("expected rate_limited for u2")
		}
		// Rebuild with a full bucket (same stores would need a 2s wait);
		// the dedup state is what we are probing, so use a fresh
		// controller only when the factory shares no state. Instead,
		// assert through the same controller's dedup store directly.
		fresh, err := c.dedup.Claim(ctx, "climate", "H-CA-12", "u2", "2025-06-01")
		if err != nil {
			t.Fatalf("probe claim: %v", err)
		}
		if !fresh {
			t.Fatalf("claim survived a rate-limited rejection; retry would see duplicate")
		}
	})
}
