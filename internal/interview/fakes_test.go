package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

type memStore struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	interactions []Interaction
	updates      int

	// beforeUpdate runs inside UpdateSession before the version check.
	beforeUpdate func(s *Session)
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*Session)}
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	s.Version = 1
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *memStore) UpdateSession(_ context.Context, s *Session) error {
	if m.beforeUpdate != nil {
		hook := m.beforeUpdate
		m.beforeUpdate = nil
		hook(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	if cur.Version != s.Version {
		return fmt.Errorf("session %s version %d: %w", s.ID, s.Version, ErrConflict)
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	m.updates++
	return nil
}

func (m *memStore) ListSessions(_ context.Context, userID string, limit int) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RecordInteraction(_ context.Context, in *Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, *in)
	return nil
}

func (m *memStore) ListInteractions(_ context.Context, userID string, limit int) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Interaction
	for i := len(m.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		if m.interactions[i].UserID == userID {
			out = append(out, m.interactions[i])
		}
	}
	return out, nil
}

// put stores s as-is, bypassing version assignment.
func (m *memStore) put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
}

type fakeBank struct {
	questions map[string]SeedQuestion
}

func (b *fakeBank) RandomQuestion(_ context.Context, module string) (SeedQuestion, error) {
	q, ok := b.questions[module]
	if !ok {
		return SeedQuestion{}, fmt.Errorf("module %s: %w", module, ErrNotFound)
	}
	return q, nil
}

func (b *fakeBank) Modules(_ context.Context) ([]Module, error) {
	var out []Module
	for code := range b.questions {
		out = append(out, Module{Code: code, Name: code, QuestionCount: 1})
	}
	return out, nil
}

type fakeGenerator struct {
	calls []GenerateRequest
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return "", g.err
	}
	if req.IsSeed {
		return FirstFollowUp, nil
	}
	return fmt.Sprintf("follow-up %d", len(g.calls)), nil
}

// fakeGate returns queued verdicts, then good.
type fakeGate struct {
	verdicts []Verdict
	calls    []AssessRequest
	err      error
}

func (g *fakeGate) Assess(_ context.Context, req AssessRequest) (Verdict, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return "", g.err
	}
	if len(g.verdicts) == 0 {
		return VerdictGood, nil
	}
	v := g.verdicts[0]
	g.verdicts = g.verdicts[1:]
	return v, nil
}

type fakeClarifier struct{ err error }

func (c *fakeClarifier) Clarify(_ context.Context, seed, q string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "clarified: " + q, nil
}

type fakeNudger struct{ err error }

func (n *fakeNudger) Nudge(_ context.Context, question, _ string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return "Let's dig deeper. " + question, nil
}

type fakeFeedback struct {
	draft FeedbackDraft
	err   error
	calls []FeedbackRequest
}

func (f *fakeFeedback) Feedback(_ context.Context, req FeedbackRequest) (FeedbackDraft, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return FeedbackDraft{}, f.err
	}
	return f.draft, nil
}

type fakeDirectory struct {
	names   map[string]string
	history History
	prior   *PriorAttempt
	histErr error
}

func (d *fakeDirectory) Exists(_ context.Context, userID string) (bool, error) {
	_, ok := d.names[userID]
	return ok, nil
}

func (d *fakeDirectory) Name(_ context.Context, userID string) (string, error) {
	return d.names[userID], nil
}

func (d *fakeDirectory) History(_ context.Context, _, _, _ string) (History, error) {
	return d.history, d.histErr
}

func (d *fakeDirectory) PriorAttempt(_ context.Context, _, _, _ string) (*PriorAttempt, error) {
	return d.prior, nil
}

type fakeRetriever struct {
	chunks  []string
	err     error
	queries []string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, topic string, topK int) ([]string, error) {
	return r.Search(ctx, topic, topic, topK)
}

func (r *fakeRetriever) Search(_ context.Context, module, query string, topK int) ([]string, error) {
	r.queries = append(r.queries, module+"|"+query)
	if r.err != nil {
		return nil, r.err
	}
	if topK < len(r.chunks) {
		return r.chunks[:topK], nil
	}
	return r.chunks, nil
}

type fakeAnalyzer struct {
	analysis ApproachAnalysis
	err      error
}

func (a *fakeAnalyzer) AnalyzeApproach(_ context.Context, _, _ string) (ApproachAnalysis, error) {
	if a.err != nil {
		return ApproachAnalysis{}, a.err
	}
	return a.analysis, nil
}

type fakeOptimizer struct {
	calls []OptimizeRequest
	err   error
}

func (o *fakeOptimizer) OptimizeCode(_ context.Context, req OptimizeRequest) (string, error) {
	o.calls = append(o.calls, req)
	if o.err != nil {
		return "", o.err
	}
	return "# optimized\n" + req.Code, nil
}

type fakeNotifier struct {
	notices []Notice
	err     error
}

func (n *fakeNotifier) Notify(_ context.Context, notice Notice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *fakeNotifier) kinds() []NoticeKind {
	out := make([]NoticeKind, len(n.notices))
	for i, x := range n.notices {
		out[i] = x.Kind
	}
	return out
}

var errOracleDown = errors.New("upstream unavailable")
