package setup

import (
	"context"
	"sync"
	"time"

	"github.com/go-mail-setup/internal/application/verification"
	"github.com/go-mail-setup/internal/domain"
)

// Attempt is one wizard run. It lives in memory only; a completed attempt
// leaves an EmailSetup record behind and nothing else.
type Attempt struct {
	mu sync.Mutex

	id         string
	userID     string
	domain     domain.DomainName
	provider   domain.Provider
	localPart  string
	givenName  string
	familyName string
	password   string
	addUsers   bool
	zoneID     string

	token       verification.Token
	tokenRecord domain.ResourceRecord
	verified    bool
	account     *domain.Account

	stage     domain.Stage
	status    domain.EventStatus
	detail    string
	failure   *domain.Failure
	remaining map[domain.Stage]int
	events    []domain.StatusEvent

	running         bool
	cancel          context.CancelFunc
	cancelRequested bool

	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is a read-only view of an attempt.
type Snapshot struct {
	ID                 string               `json:"id"`
	Domain             string               `json:"domain"`
	Provider           domain.Provider      `json:"provider"`
	Stage              domain.Stage         `json:"stage"`
	Status             domain.EventStatus   `json:"status"`
	Detail             string               `json:"detail,omitempty"`
	Failure            *domain.Failure      `json:"failure,omitempty"`
	Recoverable        bool                 `json:"recoverable"`
	VerificationRecord *VerificationRecord  `json:"verification_record,omitempty"`
	AttemptsRemaining  map[domain.Stage]int `json:"attempts_remaining,omitempty"`
	PrimaryEmail       string               `json:"primary_email,omitempty"`
	Events             []domain.StatusEvent `json:"events"`
	CreatedAt          time.Time            `json:"created"`
	UpdatedAt          time.Time            `json:"updated"`
}

// VerificationRecord is shown to users whose zone is managed elsewhere.
type VerificationRecord struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   int64  `json:"ttl"`
}

func (a *Attempt) snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &Snapshot{
		ID:        a.id,
		Domain:    a.domain.String(),
		Provider:  a.provider,
		Stage:     a.stage,
		Status:    a.status,
		Detail:    a.detail,
		Events:    append([]domain.StatusEvent(nil), a.events...),
		CreatedAt: a.createdAt,
		UpdatedAt: a.updatedAt,
	}
	if a.failure != nil {
		f := *a.failure
		s.Failure = &f
		s.Recoverable = f.Recoverable()
	}
	if a.token.Value != "" {
		s.VerificationRecord = &VerificationRecord{
			Name:  a.tokenRecord.Name,
			Type:  string(a.tokenRecord.Type),
			Value: a.token.RecordValue(),
			TTL:   a.tokenRecord.TTL,
		}
	}
	if len(a.remaining) > 0 {
		s.AttemptsRemaining = make(map[domain.Stage]int, len(a.remaining))
		for k, v := range a.remaining {
			s.AttemptsRemaining[k] = v
		}
	}
	if a.account != nil {
		s.PrimaryEmail = a.account.PrimaryEmail
	}
	return s
}

// record appends a status event and moves the attempt to ev.Stage.
func (a *Attempt) record(ev domain.StatusEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stage = ev.Stage
	a.status = ev.Status
	a.detail = ev.Detail
	a.updatedAt = ev.At
	a.events = append(a.events, ev)
}

func (a *Attempt) setRemaining(stage domain.Stage, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remaining == nil {
		a.remaining = make(map[domain.Stage]int)
	}
	a.remaining[stage] = n
}

func (a *Attempt) cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelRequested
}

func (a *Attempt) accountRequest() domain.AccountRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.AccountRequest{
		UserID:     a.userID,
		Provider:   a.provider,
		Domain:     a.domain,
		LocalPart:  a.localPart,
		GivenName:  a.givenName,
		FamilyName: a.familyName,
		Password:   a.password,
	}
}

func (a *Attempt) terminal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stage.Terminal()
}
