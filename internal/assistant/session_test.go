package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/provider/providertest"
)

func sampleFinding() schemas.ScoredFinding {
	return schemas.ScoredFinding{
		Finding: schemas.Finding{
			Category:    schemas.CategorySQLInjection,
			CWE:         "CWE-89",
			Span:        schemas.Span{StartLine: 4, EndLine: 5},
			Description: "user input concatenated into a query",
			Evidence:    `query = "SELECT * FROM users WHERE name = '" + name + "'"`,
			Confidence:  0.9,
		},
		Vector:    "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:L",
		BaseScore: 9.4,
		RiskScore: 8.5,
		Severity:  schemas.SeverityCritical,
	}
}

func newTestSession(p schemas.ModelProvider) *Session {
	unit := schemas.NewSourceUnit("lookup.py", "python", "import db\n\ndef lookup(name):\n    query = \"...\"\n    return db.execute(query)\n")
	return NewSession(p, unit, []schemas.ScoredFinding{sampleFinding()})
}

func TestSessionStartsIdle(t *testing.T) {
	s := newTestSession(providertest.Respond("hello"))
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.History())
}

func TestAskSuccessfulRoundTrip(t *testing.T) {
	fake := providertest.Respond("parameterize the query")
	s := newTestSession(fake)

	answer, err := s.Ask(context.Background(), "how do I fix the SQL injection?")
	require.NoError(t, err)
	assert.Equal(t, "parameterize the query", answer)
	assert.Equal(t, StateIdle, s.State(), "session returns to idle after the exchange")

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "how do I fix the SQL injection?", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "parameterize the query", history[1].Content)

	require.Len(t, fake.Requests, 1)
	assert.Contains(t, fake.Requests[0].UserPrompt, "SQL Injection")
	assert.Contains(t, fake.Requests[0].UserPrompt, "how do I fix the SQL injection?")
}

func TestAskEmptyQuestion(t *testing.T) {
	s := newTestSession(providertest.Respond("x"))
	_, err := s.Ask(context.Background(), "")
	assert.Error(t, err)
	assert.Empty(t, s.History())
}

func TestFailedExchangeLeavesHistoryUntouched(t *testing.T) {
	fail := providertest.Fail(schemas.NewProviderError(schemas.ProviderTimeout, errors.New("deadline")))
	s := newTestSession(fail)

	_, err := s.Ask(context.Background(), "anything?")
	require.Error(t, err)
	assert.Equal(t, StateIdle, s.State(), "failure returns the session to idle")
	assert.Empty(t, s.History(), "history grows only on success")

	// The session is reusable after a failure.
	s.provider = providertest.Respond("recovered")
	answer, err := s.Ask(context.Background(), "again?")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Len(t, s.History(), 2)
}

func TestCancellationLeavesHistoryUntouched(t *testing.T) {
	s := newTestSession(providertest.Respond("too late"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Ask(ctx, "anything?")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.History())
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	s := newTestSession(providertest.Respond("x"))
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())

	_, err := s.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.ExplainFinding(context.Background(), sampleFinding(), LevelBeginner)
	assert.ErrorIs(t, err, ErrSessionClosed)

	assert.NoError(t, s.Close(), "closing twice is fine")
}

func TestBusySessionRejectsConcurrentExchange(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := providerFunc(func(ctx context.Context, req schemas.GenerationRequest) (string, error) {
		close(started)
		<-release
		return "done", nil
	})
	s := newTestSession(blocking)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Ask(context.Background(), "first")
		assert.NoError(t, err)
	}()

	<-started
	assert.Equal(t, StateThinking, s.State())
	_, err := s.Ask(context.Background(), "second")
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.ErrorIs(t, s.Close(), ErrSessionBusy)

	close(release)
	wg.Wait()
	assert.Len(t, s.History(), 2, "only the completed exchange is recorded")
}

func TestExplainFindingLevels(t *testing.T) {
	fake := providertest.Respond("explanation")
	s := newTestSession(fake)

	_, err := s.ExplainFinding(context.Background(), sampleFinding(), LevelExpert)
	require.NoError(t, err)
	assert.Contains(t, fake.Requests[0].UserPrompt, "security professional")
	assert.Contains(t, fake.Requests[0].UserPrompt, "CWE-89")

	_, err = s.ExplainFinding(context.Background(), sampleFinding(), ExpertiseLevel("unknown"))
	require.NoError(t, err)
	assert.Contains(t, fake.Requests[1].UserPrompt, "analogy", "unknown levels fall back to beginner")
}

func TestSuggestNextStepsWithoutFindings(t *testing.T) {
	fake := providertest.Respond("should not be called")
	unit := schemas.NewSourceUnit("clean.py", "python", "x = 1\n")
	s := NewSession(fake, unit, nil)

	out, err := s.SuggestNextSteps(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "No vulnerabilities")
	assert.Zero(t, fake.Calls(), "no provider call for a clean scan")
}

func TestSuggestNextStepsPrompt(t *testing.T) {
	fake := providertest.Respond("plan")
	s := newTestSession(fake)

	_, err := s.SuggestNextSteps(context.Background())
	require.NoError(t, err)
	prompt := fake.Requests[0].UserPrompt
	assert.Contains(t, prompt, "Critical: 1")
	assert.Contains(t, prompt, "Immediate actions")
}

func TestSecurityChecklistPrompt(t *testing.T) {
	fake := providertest.Respond("checklist")
	s := newTestSession(fake)

	_, err := s.SecurityChecklist(context.Background())
	require.NoError(t, err)
	prompt := fake.Requests[0].UserPrompt
	assert.Contains(t, prompt, "python")
	assert.Contains(t, prompt, "SQL Injection")
	assert.Contains(t, prompt, "Code review checklist")
}

// providerFunc adapts a function to schemas.ModelProvider.
type providerFunc func(ctx context.Context, req schemas.GenerationRequest) (string, error)

func (f providerFunc) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	return f(ctx, req)
}

func TestExchangesCarryConversationHistory(t *testing.T) {
	fake := providertest.Respond("first answer")
	s := newTestSession(fake)

	_, err := s.Ask(context.Background(), "what is wrong here?")
	require.NoError(t, err)

	_, err = s.Ask(context.Background(), "and how bad is it?")
	require.NoError(t, err)

	require.Len(t, fake.Requests, 2)
	assert.NotContains(t, fake.Requests[0].UserPrompt, "Conversation so far")

	second := fake.Requests[1].UserPrompt
	assert.Contains(t, second, "Conversation so far")
	assert.Contains(t, second, "User: what is wrong here?")
	assert.Contains(t, second, "Assistant: first answer")
}
