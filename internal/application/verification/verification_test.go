package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockResolver struct{ mock.Mock }

func (m *mockResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	args := m.Called(ctx, name)
	if v, _ := args.Get(0).([]string); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func fixedToken(d domain.DomainName, v string) Token {
	return Token{Value: v, Domain: d, Namespace: "lovable"}
}

var fastBudget = Budget{MaxAttempts: 3, Interval: time.Millisecond}

// --- issuer ---

func TestIssue_RecordShape(t *testing.T) {
	tok, rec, err := NewIssuer("lovable").Issue("example.com")
	require.NoError(t, err)

	assert.Equal(t, domain.DomainName("example.com"), tok.Domain)
	assert.Len(t, tok.Value, 32)
	assert.Equal(t, "example.com", rec.Name)
	assert.Equal(t, domain.RecordTXT, rec.Type)
	assert.Equal(t, int64(300), rec.TTL)
	assert.Equal(t, []string{"lovable-verify=" + tok.Value}, rec.Values)
}

func TestIssue_NewTokenEachTime(t *testing.T) {
	i := NewIssuer("lovable")
	a, _, err := i.Issue("example.com")
	require.NoError(t, err)
	b, _, err := i.Issue("example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestIssue_GeneratorErrorPropagates(t *testing.T) {
	i := &Issuer{namespace: "lovable", generate: func() (string, error) { return "", errors.New("entropy") }}
	_, _, err := i.Issue("example.com")
	assert.ErrorContains(t, err, "entropy")
}

// --- poller ---

func TestPoll_VerifiedScenario(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return([]string{"unrelated-text", "lovable-verify=abc123"}, nil)

	out := NewPoller(r, time.Second).Poll(context.Background(), "example.com", fixedToken("example.com", "abc123"), fastBudget, nil)
	assert.Equal(t, Verified, out.Result)
	assert.Equal(t, 1, out.Attempts)
}

func TestPoll_EmptyUntilBudgetExhausted(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return([]string{}, nil)

	var waits int
	out := NewPoller(r, time.Second).Poll(context.Background(), "example.com", fixedToken("example.com", "abc123"), fastBudget,
		func(Outcome) { waits++ })

	assert.Equal(t, Failed, out.Result)
	assert.Equal(t, domain.ReasonTimeout, out.Reason)
	assert.Equal(t, 3, waits)
	r.AssertNumberOfCalls(t, "LookupTXT", 3)
}

func TestPoll_BecomesVisibleLater(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return(nil, domain.ErrNoRecords).Once()
	r.On("LookupTXT", mock.Anything, "example.com").Return(nil, errors.New("i/o timeout")).Once()
	r.On("LookupTXT", mock.Anything, "example.com").Return([]string{`"lovable-verify=abc123"`}, nil).Once()

	out := NewPoller(r, time.Second).Poll(context.Background(), "example.com", fixedToken("example.com", "abc123"), fastBudget, nil)
	assert.Equal(t, Verified, out.Result)
	assert.Equal(t, 3, out.Attempts)
}

func TestPoll_NXDomainFailsImmediately(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return(nil, domain.ErrNXDomain)

	out := NewPoller(r, time.Second).Poll(context.Background(), "example.com", fixedToken("example.com", "abc123"), fastBudget, nil)
	assert.Equal(t, Failed, out.Result)
	assert.Equal(t, domain.ReasonUnresolvable, out.Reason)
	r.AssertNumberOfCalls(t, "LookupTXT", 1)
}

func TestCheck_TokenForOtherDomainNeverVerifies(t *testing.T) {
	r := &mockResolver{}
	tokA := fixedToken("a.com", "abc123")

	out := NewPoller(r, time.Second).Check(context.Background(), "b.com", tokA)
	assert.Equal(t, Failed, out.Result)
	r.AssertNotCalled(t, "LookupTXT", mock.Anything, mock.Anything)
}

func TestCheck_PrefixOfLongerTokenDoesNotMatch(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return([]string{"lovable-verify=abc1234"}, nil)

	out := NewPoller(r, time.Second).Check(context.Background(), "example.com", fixedToken("example.com", "abc123"))
	assert.Equal(t, NotYetPropagated, out.Result)
}

func TestPoll_CancelledWhileWaiting(t *testing.T) {
	r := &mockResolver{}
	r.On("LookupTXT", mock.Anything, "example.com").Return(nil, domain.ErrNoRecords)

	ctx, cancel := context.WithCancel(context.Background())
	out := NewPoller(r, time.Second).Poll(ctx, "example.com", fixedToken("example.com", "abc123"),
		Budget{MaxAttempts: 5, Interval: time.Hour}, func(Outcome) { cancel() })
	assert.Equal(t, Failed, out.Result)
	assert.Equal(t, domain.ReasonCancelled, out.Reason)
}

func TestMatches(t *testing.T) {
	assert.True(t, matches("lovable-verify=x", "lovable-verify=x"))
	assert.True(t, matches(`"lovable-verify=x"`, "lovable-verify=x"))
	assert.True(t, matches("v=spf1 lovable-verify=x", "lovable-verify=x"))
	assert.False(t, matches("lovable-verify=xy", "lovable-verify=x"))
	assert.False(t, matches("", "lovable-verify=x"))
}
