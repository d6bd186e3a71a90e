// Package assistant implements the interactive security assistant: a
// conversational layer over scan results that explains findings, answers
// questions and proposes remediation plans.
//
// A session moves through a strict lifecycle for every exchange:
//
//	Idle -> AwaitingUserInput -> Thinking -> Responding -> Idle
//
// Conversation history grows only when a round trip completes; a failed or
// cancelled provider call leaves the history exactly as it was.
package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/observability"
)

// State is the session lifecycle position.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingUserInput State = "awaiting_user_input"
	StateThinking          State = "thinking"
	StateResponding        State = "responding"
	StateClosed            State = "closed"
)

// ErrSessionClosed is returned by every operation on a closed session.
var ErrSessionClosed = fmt.Errorf("assistant session is closed")

// ErrSessionBusy is returned when an exchange is requested while another
// one is still in flight.
var ErrSessionBusy = fmt.Errorf("assistant session is busy")

// Turn is one utterance in the conversation history.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant".
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ExpertiseLevel selects how a finding explanation is pitched.
type ExpertiseLevel string

const (
	LevelBeginner     ExpertiseLevel = "beginner"
	LevelIntermediate ExpertiseLevel = "intermediate"
	LevelExpert       ExpertiseLevel = "expert"
)

// Session is one interactive conversation bound to a unit's scan results.
// All methods are safe for concurrent use; only one exchange runs at a time.
type Session struct {
	ID string

	provider schemas.ModelProvider
	unit     *schemas.SourceUnit
	findings []schemas.ScoredFinding
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	history []Turn
}

// NewSession opens an idle session over the given results.
func NewSession(p schemas.ModelProvider, unit *schemas.SourceUnit, findings []schemas.ScoredFinding) *Session {
	id := uuid.New().String()
	return &Session{
		ID:       id,
		provider: p,
		unit:     unit,
		findings: findings,
		state:    StateIdle,
		logger:   observability.GetLogger().Named("assistant").With(zap.String("session_id", id)),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Close ends the session. Closing is idempotent; a busy session cannot be
// closed until its exchange finishes.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return nil
	case StateIdle:
		s.state = StateClosed
		return nil
	default:
		return ErrSessionBusy
	}
}

// ExplainFinding walks through one finding at the requested expertise
// level.
func (s *Session) ExplainFinding(ctx context.Context, finding schemas.ScoredFinding, level ExpertiseLevel) (string, error) {
	prompt := buildExplainPrompt(s.unit, finding, level)
	return s.roundTrip(ctx, fmt.Sprintf("explain %s at line %d (%s)", finding.Category, finding.Span.StartLine, level),
		explainSystemPrompt, prompt)
}

// Ask answers a free-form question grounded in the session's findings and
// source.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if question == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	prompt := buildQuestionPrompt(s.unit, s.findings, question)
	return s.roundTrip(ctx, question, questionSystemPrompt, prompt)
}

// SuggestNextSteps proposes a prioritized remediation plan. With no
// findings it answers directly without a provider call.
func (s *Session) SuggestNextSteps(ctx context.Context) (string, error) {
	if len(s.findings) == 0 {
		return "No vulnerabilities were found. The analyzed code looks clean.", nil
	}
	prompt := buildNextStepsPrompt(s.findings)
	return s.roundTrip(ctx, "what should I do next?", nextStepsSystemPrompt, prompt)
}

// SecurityChecklist generates a language-specific checklist covering the
// weaknesses this scan surfaced.
func (s *Session) SecurityChecklist(ctx context.Context) (string, error) {
	prompt := buildChecklistPrompt(s.unit, s.findings)
	return s.roundTrip(ctx, "generate a security checklist", checklistSystemPrompt, prompt)
}

// roundTrip drives one full exchange through the lifecycle. On any failure
// the state returns to Idle and the history is untouched.
func (s *Session) roundTrip(ctx context.Context, userMessage, systemPrompt, userPrompt string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}

	s.mu.Lock()
	transcript := renderHistory(s.history)
	s.mu.Unlock()

	s.setState(StateThinking)
	response, err := s.provider.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   transcript + userPrompt,
		Options:      schemas.GenerationOptions{Temperature: 0.4},
	})
	if err != nil {
		s.setState(StateIdle)
		s.logger.Warn("exchange failed", zap.Error(err))
		return "", err
	}

	s.setState(StateResponding)
	now := time.Now().UTC()
	s.mu.Lock()
	s.history = append(s.history,
		Turn{Role: "user", Content: userMessage, At: now},
		Turn{Role: "assistant", Content: response, At: now},
	)
	s.state = StateIdle
	s.mu.Unlock()

	return response, nil
}

// begin claims the session for one exchange, passing through the
// AwaitingUserInput state.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateIdle:
		s.state = StateAwaitingUserInput
		return nil
	default:
		return ErrSessionBusy
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
