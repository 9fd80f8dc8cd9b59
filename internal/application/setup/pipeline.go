package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-mail-setup/internal/application/verification"
	"github.com/go-mail-setup/internal/domain"
	s3infra "github.com/go-mail-setup/internal/infrastructure/s3"
	"github.com/sethvargo/go-retry"
)

// Options tune the pipeline.
type Options struct {
	Budget            verification.Budget
	PublishMaxRetries int
	PublishRetryBase  time.Duration
	AccountTimeout    time.Duration
	DefaultZoneID     string
}

// pipeline runs the stages of one attempt strictly in order.
type pipeline struct {
	issuer   TokenIssuer
	poller   VerificationPoller
	builder  RecordBuilder
	zone     ZonePublisher
	accounts AccountCreator
	store    SetupStore
	archive  RolloutArchive
	sink     StatusSink
	guard    DomainGuard
	opts     Options
	now      func() time.Time
}

// run drives a from stage until it completes or fails. A fresh attempt
// starts at StageVerifyingDomain; retries start at the stage that failed.
func (p *pipeline) run(ctx context.Context, a *Attempt, from domain.Stage) {
	stage := from
	for !stage.Terminal() {
		// Cancellation is honoured at stage boundaries only.
		if a.cancelled() || ctx.Err() != nil {
			p.fail(ctx, a, domain.Failure{Stage: stage, Reason: domain.ReasonCancelled, Detail: "cancelled by user"})
			return
		}
		if err := p.holdGuard(ctx, a); err != nil {
			p.fail(ctx, a, domain.Failure{Stage: stage, Reason: domain.ReasonTransient, Detail: "domain lock lost: " + err.Error()})
			return
		}
		next, failure := p.step(ctx, a, stage)
		if failure != nil {
			if a.cancelled() && failure.Reason != domain.ReasonCancelled && stage != domain.StageCreatingAccount {
				failure = &domain.Failure{Stage: stage, Reason: domain.ReasonCancelled, Detail: "cancelled by user"}
			}
			p.fail(ctx, a, *failure)
			return
		}
		stage = next
	}
	p.emit(ctx, a, domain.StageComplete, domain.EventComplete, "email for "+a.domain.String()+" is live")
}

// holdGuard re-acquires the domain lock so a long attempt keeps it past the
// lock TTL. Only losing the lock to another owner is an error.
func (p *pipeline) holdGuard(ctx context.Context, a *Attempt) error {
	if p.guard == nil {
		return nil
	}
	err := p.guard.Acquire(ctx, a.domain, a.id)
	if err == nil || errors.Is(err, domain.ErrConflict) {
		return err
	}
	slog.Warn("could not refresh domain guard", "attempt_id", a.id, "domain", a.domain, "err", err)
	return nil
}

func (p *pipeline) step(ctx context.Context, a *Attempt, stage domain.Stage) (domain.Stage, *domain.Failure) {
	switch stage {
	case domain.StageVerifyingDomain:
		return p.issueToken(ctx, a)
	case domain.StagePublishingVerification:
		return p.publishVerification(ctx, a)
	case domain.StagePollingVerification:
		return p.pollVerification(ctx, a)
	case domain.StagePublishingRecords:
		return p.publishRecords(ctx, a)
	case domain.StageCreatingAccount:
		return p.createAccount(ctx, a)
	case domain.StagePersisting:
		return p.persist(ctx, a)
	}
	return stage, &domain.Failure{Stage: stage, Reason: domain.ReasonPermanent, Detail: fmt.Sprintf("no handler for stage %q", stage)}
}

func (p *pipeline) issueToken(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	p.emit(ctx, a, domain.StageVerifyingDomain, domain.EventProcessing, "issuing verification token")
	a.mu.Lock()
	issued := a.token.Value != ""
	a.mu.Unlock()
	if !issued {
		tok, rec, err := p.issuer.Issue(a.domain)
		if err != nil {
			return "", &domain.Failure{Stage: domain.StageVerifyingDomain, Reason: domain.ReasonPermanent, Detail: err.Error()}
		}
		a.mu.Lock()
		a.token, a.tokenRecord = tok, rec
		a.mu.Unlock()
	}
	p.emit(ctx, a, domain.StageVerifyingDomain, domain.EventComplete, "verification token issued")
	return domain.StagePublishingVerification, nil
}

func (p *pipeline) publishVerification(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	const stage = domain.StagePublishingVerification
	p.emit(ctx, a, stage, domain.EventProcessing, "publishing verification record")
	a.mu.Lock()
	rec := a.tokenRecord
	a.mu.Unlock()
	if _, f := p.publish(ctx, a, stage, []domain.ResourceRecord{rec}); f != nil {
		return "", f
	}
	p.emit(ctx, a, stage, domain.EventComplete, "verification record published")
	return domain.StagePollingVerification, nil
}

func (p *pipeline) pollVerification(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	const stage = domain.StagePollingVerification
	budget := p.opts.Budget
	p.emit(ctx, a, stage, domain.EventProcessing, "waiting for the verification record to propagate")
	a.setRemaining(stage, budget.MaxAttempts)

	a.mu.Lock()
	tok := a.token
	a.mu.Unlock()
	out := p.poller.Poll(ctx, a.domain, tok, budget, func(o verification.Outcome) {
		if err := p.holdGuard(ctx, a); err != nil {
			slog.Warn("domain lock lost while polling", "attempt_id", a.id, "domain", a.domain, "err", err)
		}
		a.setRemaining(stage, budget.MaxAttempts-o.Attempts)
		p.emit(ctx, a, stage, domain.EventWaiting, fmt.Sprintf("check %d of %d: %s", o.Attempts, budget.MaxAttempts, o.Detail))
	})
	switch out.Result {
	case verification.Verified:
		a.mu.Lock()
		a.verified = true
		a.mu.Unlock()
		a.setRemaining(stage, budget.MaxAttempts-out.Attempts)
		p.emit(ctx, a, stage, domain.EventComplete, "domain ownership verified")
		return domain.StagePublishingRecords, nil
	case verification.Failed:
		return "", &domain.Failure{Stage: stage, Reason: out.Reason, Detail: out.Detail}
	}
	return "", &domain.Failure{Stage: stage, Reason: domain.ReasonTimeout, Detail: out.Detail}
}

func (p *pipeline) publishRecords(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	const stage = domain.StagePublishingRecords
	a.mu.Lock()
	verified := a.verified
	a.mu.Unlock()
	if !verified {
		return "", &domain.Failure{Stage: stage, Reason: domain.ReasonPermanent, Detail: "domain ownership has not been verified"}
	}

	p.emit(ctx, a, stage, domain.EventProcessing, "publishing "+a.provider.DisplayName()+" records")
	set, err := p.builder.Build(a.domain, a.provider)
	if err != nil {
		return "", &domain.Failure{Stage: stage, Reason: domain.ReasonPermanent, Detail: err.Error()}
	}
	receipt, f := p.publish(ctx, a, stage, set.Records)
	if f != nil {
		return "", f
	}
	p.archiveRollout(ctx, a, set, receipt)
	p.emit(ctx, a, stage, domain.EventComplete, fmt.Sprintf("%d records published", receipt.Records))
	return domain.StageCreatingAccount, nil
}

func (p *pipeline) createAccount(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	const stage = domain.StageCreatingAccount
	a.mu.Lock()
	done := a.account != nil
	a.mu.Unlock()
	if done {
		return domain.StagePersisting, nil
	}

	p.emit(ctx, a, stage, domain.EventProcessing, "creating "+a.provider.DisplayName()+" account")
	req := a.accountRequest()

	// The provider call is not interruptible; cancellation is checked after it returns.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.AccountTimeout)
	defer cancel()
	acct, err := p.accounts.CreateAccount(callCtx, req)
	detail := "account " + req.PrimaryEmail() + " created"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAccountExists):
		acct = domain.Account{PrimaryEmail: req.PrimaryEmail()}
		detail = "account " + req.PrimaryEmail() + " already exists"
	case errors.Is(err, domain.ErrAuthRequired):
		return "", &domain.Failure{Stage: stage, Reason: domain.ReasonAuthRequired,
			Detail: "reconnect your " + a.provider.DisplayName() + " account, then retry: " + err.Error()}
	default:
		return "", &domain.Failure{Stage: stage, Reason: domain.ReasonProvider, Detail: err.Error()}
	}
	if acct.PrimaryEmail == "" {
		acct.PrimaryEmail = req.PrimaryEmail()
	}

	a.mu.Lock()
	a.account = &acct
	a.password = ""
	a.mu.Unlock()
	p.emit(ctx, a, stage, domain.EventComplete, detail)
	return domain.StagePersisting, nil
}

func (p *pipeline) persist(ctx context.Context, a *Attempt) (domain.Stage, *domain.Failure) {
	const stage = domain.StagePersisting
	p.emit(ctx, a, stage, domain.EventProcessing, "saving email setup")

	now := p.now()
	a.mu.Lock()
	rec := &domain.EmailSetup{
		SetupID:      a.id,
		UserID:       a.userID,
		Domain:       a.domain.String(),
		Provider:     a.provider,
		EmailName:    a.localPart,
		PrimaryEmail: a.account.PrimaryEmail,
		AddUsers:     a.addUsers,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a.mu.Unlock()

	if err := p.store.Put(ctx, rec); err != nil {
		return "", &domain.Failure{Stage: stage, Reason: domain.ReasonRetryable,
			Detail: "DNS and account are in place but the setup could not be saved: " + err.Error()}
	}
	p.emit(ctx, a, stage, domain.EventComplete, "email setup saved")
	return domain.StageComplete, nil
}

// publish upserts recs, retrying transient zone errors with exponential
// backoff. Permanent errors stop after the first call.
func (p *pipeline) publish(ctx context.Context, a *Attempt, stage domain.Stage, recs []domain.ResourceRecord) (domain.ChangeReceipt, *domain.Failure) {
	maxRetries := p.opts.PublishMaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	a.mu.Lock()
	zoneID := a.zoneID
	a.mu.Unlock()

	var receipt domain.ChangeReceipt
	calls := 0
	b := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(p.opts.PublishRetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		calls++
		a.setRemaining(stage, maxRetries+1-calls)
		r, err := p.zone.Upsert(ctx, zoneID, recs)
		if err == nil {
			receipt = r
			return nil
		}
		if domain.IsTransient(err) {
			if calls <= maxRetries {
				slog.Warn("zone change failed, retrying", "attempt_id", a.id, "stage", stage, "call", calls, "err", err)
				p.emit(ctx, a, stage, domain.EventProcessing, fmt.Sprintf("temporary DNS provider error, retrying (%d/%d)", calls, maxRetries))
			}
			return retry.RetryableError(err)
		}
		return err
	})
	switch {
	case err == nil:
		return receipt, nil
	case a.cancelled() || ctx.Err() != nil:
		return receipt, &domain.Failure{Stage: stage, Reason: domain.ReasonCancelled, Detail: "cancelled by user"}
	case domain.IsTransient(err):
		return receipt, &domain.Failure{Stage: stage, Reason: domain.ReasonTransient,
			Detail: fmt.Sprintf("DNS provider still failing after %d attempts: %v", calls, err)}
	}
	return receipt, &domain.Failure{Stage: stage, Reason: domain.ReasonPermanent, Detail: err.Error()}
}

func (p *pipeline) archiveRollout(ctx context.Context, a *Attempt, set domain.ProviderRecordSet, receipt domain.ChangeReceipt) {
	if p.archive == nil {
		return
	}
	a.mu.Lock()
	r := s3infra.Rollout{
		AttemptID: a.id,
		Domain:    set.Domain.String(),
		Provider:  set.Provider,
		ZoneID:    a.zoneID,
		Records:   set.Records,
		Receipt:   receipt,
	}
	a.mu.Unlock()
	if _, err := p.archive.Store(context.WithoutCancel(ctx), r); err != nil {
		slog.Warn("could not archive rollout", "attempt_id", a.id, "err", err)
	}
}

func (p *pipeline) fail(ctx context.Context, a *Attempt, f domain.Failure) {
	a.mu.Lock()
	a.failure = &f
	a.mu.Unlock()
	slog.Warn("setup attempt failed", "attempt_id", a.id, "domain", a.domain, "stage", f.Stage, "reason", f.Reason, "detail", f.Detail)
	p.emit(ctx, a, domain.StageFailed, domain.EventError, fmt.Sprintf("%s: %s", f.Stage, f.Detail))
}

func (p *pipeline) emit(ctx context.Context, a *Attempt, stage domain.Stage, status domain.EventStatus, detail string) {
	ev := domain.StatusEvent{AttemptID: a.id, Stage: stage, Status: status, Detail: detail, At: p.now()}
	a.record(ev)
	if p.sink != nil {
		p.sink.Emit(context.WithoutCancel(ctx), ev)
	}
}
