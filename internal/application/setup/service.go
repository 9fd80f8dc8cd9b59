package setup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/pkg/id"
	"github.com/go-mail-setup/internal/pkg/validate"
)

// retention is how long a finished attempt stays queryable.
const retention = time.Hour

// idPrefix marks attempt IDs; a completed attempt keeps its ID as the SetupID.
const idPrefix = "setup"

type Service interface {
	Start(ctx context.Context, userID string, req domain.StartSetupRequest) (*Snapshot, error)
	Get(ctx context.Context, userID, attemptID string) (*Snapshot, error)
	Retry(ctx context.Context, userID, attemptID string) (*Snapshot, error)
	Cancel(ctx context.Context, userID, attemptID string) (*Snapshot, error)
	// Shutdown cancels running attempts and waits for them to stop.
	Shutdown(ctx context.Context) error
}

// Deps are the collaborators of the setup pipeline. Archive and Sink may be nil.
type Deps struct {
	Issuer   TokenIssuer
	Poller   VerificationPoller
	Builder  RecordBuilder
	Zone     ZonePublisher
	Accounts AccountCreator
	Store    SetupStore
	Guard    DomainGuard
	Archive  RolloutArchive
	Sink     StatusSink
}

type service struct {
	pipeline *pipeline
	guard    DomainGuard

	mu       sync.Mutex
	attempts map[string]*Attempt
	wg       sync.WaitGroup
}

func NewService(deps Deps, opts Options) Service {
	if opts.PublishRetryBase <= 0 {
		opts.PublishRetryBase = 500 * time.Millisecond
	}
	if opts.AccountTimeout <= 0 {
		opts.AccountTimeout = time.Minute
	}
	if opts.Budget.MaxAttempts < 1 {
		opts.Budget.MaxAttempts = 1
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewMemoryGuard()
	}
	return &service{
		pipeline: &pipeline{
			issuer:   deps.Issuer,
			poller:   deps.Poller,
			builder:  deps.Builder,
			zone:     deps.Zone,
			accounts: deps.Accounts,
			store:    deps.Store,
			archive:  deps.Archive,
			sink:     deps.Sink,
			guard:    guard,
			opts:     opts,
			now:      func() time.Time { return time.Now().UTC() },
		},
		guard:    guard,
		attempts: make(map[string]*Attempt),
	}
}

// Start validates req, claims the domain and launches the pipeline in the
// background. It returns domain.ErrConflict if the domain is already busy.
func (s *service) Start(ctx context.Context, userID string, req domain.StartSetupRequest) (*Snapshot, error) {
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	d, err := domain.ParseDomainName(req.Domain)
	if err != nil {
		return nil, err
	}
	p, err := domain.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	zoneID := strings.TrimSpace(req.HostedZoneID)
	if zoneID == "" {
		zoneID = s.pipeline.opts.DefaultZoneID
	}
	if zoneID == "" {
		return nil, &domain.ValidationError{Field: "hosted_zone_id", Reason: "no hosted zone configured for this deployment"}
	}

	now := s.pipeline.now()
	a := &Attempt{
		id:         id.New(idPrefix),
		userID:     userID,
		domain:     d,
		provider:   p,
		localPart:  strings.ToLower(req.EmailLocalPart),
		givenName:  req.GivenName,
		familyName: req.FamilyName,
		password:   req.Password,
		addUsers:   req.AddUsers,
		zoneID:     zoneID,
		stage:      domain.StageIdle,
		status:     domain.EventWaiting,
		running:    true,
		createdAt:  now,
		updatedAt:  now,
	}
	if err := s.guard.Acquire(ctx, d, a.id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.evictLocked(now)
	s.attempts[a.id] = a
	s.mu.Unlock()

	s.pipeline.emit(ctx, a, domain.StageIdle, domain.EventWaiting, "setup queued for "+d.String())
	slog.Info("setup attempt started", "attempt_id", a.id, "domain", d, "provider", p, "user_id", userID)
	s.launch(a, domain.StageVerifyingDomain)
	return a.snapshot(), nil
}

func (s *service) Get(_ context.Context, userID, attemptID string) (*Snapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

// Retry resumes a recoverable failure at the stage that failed.
func (s *service) Retry(ctx context.Context, userID, attemptID string) (*Snapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	// Claim the attempt under one lock so concurrent retries cannot both launch.
	a.mu.Lock()
	if a.running || a.failure == nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("attempt is not in a failed state: %w", domain.ErrConflict)
	}
	f := *a.failure
	if !f.Recoverable() {
		a.mu.Unlock()
		return nil, fmt.Errorf("%s failure at %s cannot be retried, start a new setup: %w", f.Reason, f.Stage, domain.ErrConflict)
	}
	from := resumeStage(f)
	a.running = true
	a.failure = nil
	a.cancelRequested = false
	a.mu.Unlock()

	if err := s.guard.Acquire(ctx, a.domain, a.id); err != nil {
		a.mu.Lock()
		a.running = false
		a.failure = &f
		a.mu.Unlock()
		return nil, err
	}
	if from == domain.StageVerifyingDomain || from == domain.StagePublishingVerification || from == domain.StagePollingVerification {
		a.mu.Lock()
		a.verified = false
		a.mu.Unlock()
	}

	slog.Info("setup attempt retried", "attempt_id", a.id, "stage", from)
	s.launch(a, from)
	return a.snapshot(), nil
}

// resumeStage maps a failure onto the stage a retry restarts from. A
// verification timeout republishes the same record before polling again.
func resumeStage(f domain.Failure) domain.Stage {
	switch f.Stage {
	case domain.StagePollingVerification:
		return domain.StagePublishingVerification
	case domain.StageIdle:
		return domain.StageVerifyingDomain
	}
	return f.Stage
}

// Cancel stops a running attempt at its next stage boundary. Once account
// creation has started the call is allowed to finish first. Cancelling a
// failed attempt abandons it.
func (s *service) Cancel(ctx context.Context, userID, attemptID string) (*Snapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	switch {
	case a.stage == domain.StageComplete:
		a.mu.Unlock()
		return nil, fmt.Errorf("attempt already completed: %w", domain.ErrConflict)
	case a.running:
		a.cancelRequested = true
		inAccount := a.stage == domain.StageCreatingAccount
		cancel := a.cancel
		a.mu.Unlock()
		if inAccount {
			slog.Info("cancel deferred until account creation returns", "attempt_id", a.id)
		}
		// nil until launch runs; the pipeline sees cancelRequested at its
		// first stage boundary.
		if cancel != nil {
			cancel()
		}
	default:
		if a.failure != nil && a.failure.Reason != domain.ReasonCancelled {
			a.failure = &domain.Failure{Stage: a.failure.Stage, Reason: domain.ReasonCancelled, Detail: "abandoned after: " + a.failure.Detail}
		}
		a.mu.Unlock()
		s.pipeline.emit(ctx, a, domain.StageFailed, domain.EventError, "setup abandoned")
	}
	return a.snapshot(), nil
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, a := range s.attempts {
		a.mu.Lock()
		if a.running {
			a.cancelRequested = true
			if a.cancel != nil {
				a.cancel()
			}
		}
		a.mu.Unlock()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launch runs the pipeline for an attempt the caller has already marked running.
func (s *service) launch(a *Attempt, from domain.Stage) {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.pipeline.run(ctx, a, from)

		// Release before clearing running so a retry cannot acquire first
		// and then lose its lock to this release.
		if err := s.guard.Release(context.Background(), a.domain, a.id); err != nil {
			slog.Warn("could not release domain guard", "attempt_id", a.id, "domain", a.domain, "err", err)
		}
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()
}

func (s *service) lookup(userID, attemptID string) (*Attempt, error) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	s.mu.Unlock()
	if !ok || a.userID != userID {
		if _, err := id.Time(idPrefix, attemptID); err != nil {
			return nil, &domain.ValidationError{Field: "id", Reason: "malformed setup attempt id"}
		}
		return nil, fmt.Errorf("setup attempt %s: %w", attemptID, domain.ErrNotFound)
	}
	return a, nil
}

// evictLocked drops finished attempts older than retention.
func (s *service) evictLocked(now time.Time) {
	for k, a := range s.attempts {
		a.mu.Lock()
		expired := !a.running && a.stage.Terminal() && now.Sub(a.updatedAt) > retention
		a.mu.Unlock()
		if expired {
			delete(s.attempts, k)
		}
	}
}
