// Package dispatch fans one delivery request out to its resolved offices and
// drives the owning job through its state machine.
//
// Dispatch creates the job in the queued state and returns as soon as the row
// exists; every per-office submission then runs on its own goroutine, bounded
// globally by a semaphore and detached from the caller's cancellation. Each
// goroutine runs admission, renders the message, submits it upstream, and
// records exactly one SubmissionAttempt. The first attempt flips the job to
// processing; when every office has an attempt the terminal state is computed
// by EvaluateState and applied under a guarded update, so losing a finalize
// race is a clean no-op. Terminal observers are notified fire-and-forget
// after the transition lands.
//
// Offices are independent. A panic or error while delivering to one office is
// captured as that office's attempt and never disturbs the others.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-advocacy-backend/internal/admission"
	"github.com/tbourn/go-advocacy-backend/internal/cwc"
	"github.com/tbourn/go-advocacy-backend/internal/domain"
	"github.com/tbourn/go-advocacy-backend/internal/repo"
)

// DefaultMaxConcurrent bounds in-flight submissions across all jobs when the
// config does not say otherwise.
const DefaultMaxConcurrent = 32

// Renderer produces the final per-office message text. Implementations may
// personalize per recipient; the request content arrives already personalized
// by the template layer, so the default passes it through untouched.
type Renderer interface {
	Resolve(req *domain.DeliveryRequest, office domain.Office) (subject, body string)
}

// PassthroughRenderer returns the request's subject and body unchanged.
type PassthroughRenderer struct{}

// Resolve implements Renderer.
func (PassthroughRenderer) Resolve(req *domain.DeliveryRequest, _ domain.Office) (string, string) {
	return req.Subject, req.Body
}

// TerminalObserver is notified after a job reaches a terminal state. Each
// observer runs on its own goroutine and must not assume the dispatcher
// waits for it before serving the next job.
type TerminalObserver func(jobID string, state domain.JobState)

// Config carries the dispatcher's collaborators and tunables.
type Config struct {
	DB        *gorm.DB
	Admission *admission.Controller
	Submitter cwc.Submitter

	// Renderer resolves per-office message text. Nil means
	// PassthroughRenderer.
	Renderer Renderer

	// MaxConcurrent caps in-flight submissions across all jobs. Values
	// below one fall back to DefaultMaxConcurrent.
	MaxConcurrent int

	// Logger is the logger background workers write to. Nil means the
	// global logger.
	Logger *zerolog.Logger

	// Observers run after the built-in metric and log observers.
	Observers []TerminalObserver
}

// Dispatcher owns the fan-out. Safe for concurrent use; all fields are fixed
// at construction.
type Dispatcher struct {
	db        *gorm.DB
	admission *admission.Controller
	submitter cwc.Submitter
	renderer  Renderer
	log       zerolog.Logger

	sem       chan struct{}
	observers []TerminalObserver
	wg        sync.WaitGroup
}

// New builds a Dispatcher from cfg, filling in defaults and registering the
// built-in terminal observers.
func New(cfg Config) *Dispatcher {
	if cfg.Renderer == nil {
		cfg.Renderer = PassthroughRenderer{}
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	lg := log.Logger
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}

	d := &Dispatcher{
		db:        cfg.DB,
		admission: cfg.Admission,
		submitter: cfg.Submitter,
		renderer:  cfg.Renderer,
		log:       lg,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
	d.observers = append([]TerminalObserver{d.observeMetrics, d.observeLog}, cfg.Observers...)
	return d
}

// Dispatch creates the job for req and schedules one submission per office.
// It returns the job id as soon as the queued row exists; the fan-out
// continues in the background, detached from ctx's cancellation. A request
// that resolved to no offices produces a zero-attempt completed job before
// returning.
func (d *Dispatcher) Dispatch(ctx context.Context, req *domain.DeliveryRequest, offices []domain.Office) (string, error) {
	tr := otel.Tracer("dispatch/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("delivery.request_id", req.ID),
			attribute.Int("delivery.offices", len(offices)),
		),
	)
	defer span.End()

	job, err := repo.CreateJob(ctx, d.db, req.ID, len(offices))
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	jobStates.WithLabelValues(string(domain.JobStateQueued)).Inc()

	if len(offices) == 0 {
		d.finalize(ctx, job.ID, 0)
		return job.ID, nil
	}

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx), job, req, offices)
	return job.ID, nil
}

// Wait blocks until every scheduled fan-out and observer notification has
// finished. Meant for shutdown and for tests that need the background work
// joined.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// run delivers to every office of one job and then finalizes it. The
// semaphore is acquired per office, so a large job queues behind the global
// bound instead of monopolizing it.
func (d *Dispatcher) run(ctx context.Context, job *domain.Job, req *domain.DeliveryRequest, offices []domain.Office) {
	defer d.wg.Done()

	var wg sync.WaitGroup
	for _, office := range offices {
		wg.Add(1)
		d.sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-d.sem }()
			d.deliver(ctx, job, req, office)
		}()
	}
	wg.Wait()

	d.finalize(ctx, job.ID, job.ExpectedCount)
}

// deliver handles one office end to end: flip the job to processing if this
// is the first attempt, build the attempt, persist it.
func (d *Dispatcher) deliver(ctx context.Context, job *domain.Job, req *domain.DeliveryRequest, office domain.Office) {
	applied, err := repo.MarkJobProcessing(ctx, d.db, job.ID)
	if err != nil {
		d.log.Warn().Err(err).Str("job_id", job.ID).Msg("mark job processing")
	} else if applied {
		jobStates.WithLabelValues(string(domain.JobStateProcessing)).Inc()
	}

	a := d.safeAttempt(ctx, job, req, office)
	d.record(ctx, job, office, a)
}

// safeAttempt builds the attempt for one office, converting a collaborator
// panic into an error outcome so one recipient cannot take down the others.
func (d *Dispatcher) safeAttempt(ctx context.Context, job *domain.Job, req *domain.DeliveryRequest, office domain.Office) (a *domain.SubmissionAttempt) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("job_id", job.ID).
				Str("office_id", office.OfficeID).
				Interface("panic", r).
				Msg("submission panicked")
			detail := fmt.Sprintf("panic: %v", r)
			a = &domain.SubmissionAttempt{Outcome: domain.OutcomeError, ErrorDetail: &detail}
		}
	}()
	return d.attempt(ctx, req, office)
}

// attempt runs admission and, when admitted, the upstream submission, and
// classifies the result. Never returns nil; every path yields an outcome.
func (d *Dispatcher) attempt(ctx context.Context, req *domain.DeliveryRequest, office domain.Office) *domain.SubmissionAttempt {
	a := &domain.SubmissionAttempt{
		OfficeID: office.OfficeID,
		Chamber:  office.Chamber,
	}

	dec, err := d.admission.Admit(ctx, admission.AdmitRequest{
		TemplateID: req.TemplateID,
		OfficeID:   office.OfficeID,
		Chamber:    office.Chamber,
		UserID:     req.SenderID(),
		Day:        domain.DedupDay(time.Now()),
	})
	if err != nil {
		detail := "admission: " + err.Error()
		a.Outcome = domain.OutcomeError
		a.ErrorDetail = &detail
		return a
	}
	switch dec.Outcome {
	case admission.Duplicate:
		a.Outcome = domain.OutcomeDuplicate
		return a
	case admission.RateLimited:
		ms := dec.RetryAfter.Milliseconds()
		a.Outcome = domain.OutcomeRateLimited
		a.RetryAfterMS = &ms
		return a
	}

	subject, body := d.renderer.Resolve(req, office)
	res, err := d.submitter.Submit(ctx, office.Chamber, office.OfficeID, cwc.Message{
		TemplateID:    req.TemplateID,
		RecipientName: office.DisplayName,
		Subject:       subject,
		Body:          body,
	})
	if err != nil {
		detail := err.Error()
		a.Outcome = domain.OutcomeError
		a.ErrorDetail = &detail
		return a
	}
	if !res.Accepted {
		a.Outcome = domain.OutcomeError
		if res.Err != "" {
			detail := res.Err
			a.ErrorDetail = &detail
		}
		return a
	}

	a.Outcome = domain.OutcomeSuccess
	if res.MessageID != "" {
		a.ExternalMessageID = &res.MessageID
	}
	return a
}

// record persists one attempt and logs it. Losing the row to a storage error
// is logged and swallowed; the job finalizes on whatever attempts landed.
func (d *Dispatcher) record(ctx context.Context, job *domain.Job, office domain.Office, a *domain.SubmissionAttempt) {
	a.JobID = job.ID
	if a.OfficeID == "" {
		a.OfficeID = office.OfficeID
	}
	if a.Chamber == "" {
		a.Chamber = office.Chamber
	}

	if err := repo.CreateAttempt(d.db.WithContext(ctx), a); err != nil {
		d.log.Error().Err(err).
			Str("job_id", job.ID).
			Str("office_id", a.OfficeID).
			Msg("record submission attempt")
	}
	submissionsTotal.WithLabelValues(string(a.Chamber), string(a.Outcome)).Inc()

	evt := d.log.Info()
	if a.Outcome == domain.OutcomeError {
		evt = d.log.Warn()
		if a.ErrorDetail != nil {
			evt = evt.Str("error", *a.ErrorDetail)
		}
	}
	evt.Str("job_id", job.ID).
		Str("office_id", a.OfficeID).
		Str("chamber", string(a.Chamber)).
		Str("outcome", string(a.Outcome)).
		Msg("submission attempt")
}

// finalize computes and applies the terminal state. The guarded update means
// a concurrent finalizer loses cleanly, and observers fire only for the
// caller that applied the transition.
func (d *Dispatcher) finalize(ctx context.Context, jobID string, expected int) {
	tally, err := repo.AttemptTally(ctx, d.db, jobID)
	if err != nil {
		d.log.Error().Err(err).Str("job_id", jobID).Msg("tally attempts")
		return
	}

	state := EvaluateState(int(tally.Succeeded), int(tally.Attempted), expected)
	applied, err := repo.FinalizeJob(ctx, d.db, jobID, state, time.Now().UTC())
	if err != nil {
		d.log.Error().Err(err).
			Str("job_id", jobID).
			Str("state", string(state)).
			Msg("finalize job")
		return
	}
	if !applied {
		return
	}

	for _, obs := range d.observers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			obs(jobID, state)
		}()
	}
}

func (d *Dispatcher) observeMetrics(_ string, state domain.JobState) {
	jobStates.WithLabelValues(string(state)).Inc()
}

func (d *Dispatcher) observeLog(jobID string, state domain.JobState) {
	d.log.Info().
		Str("job_id", jobID).
		Str("state", string(state)).
		Msg("delivery job reached terminal state")
}
