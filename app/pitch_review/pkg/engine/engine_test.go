package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/model"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/notify"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/storage"
)

// memStore 内存存储
type memStore struct {
	mu      sync.Mutex
	pitches map[string]*model.Pitch
	demos   map[string]*model.Demo
	saves   int
	saveErr error
}

func newMemStore(pitches ...*model.Pitch) *memStore {
	s := &memStore{pitches: map[string]*model.Pitch{}, demos: map[string]*model.Demo{}}
	for _, p := range pitches {
		s.pitches[p.ID] = p
	}
	return s
}

func (s *memStore) GetPitch(_ context.Context, id string) (*model.Pitch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pitches[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetDemo(_ context.Context, pitchID string) (*model.Demo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demos[pitchID], nil
}

func (s *memStore) SaveReview(_ context.Context, id string, u *model.ReviewUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	p, ok := s.pitches[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.saves++
	p.QualityScore = u.QualityScore
	p.Flags = u.Flags
	p.ReviewStatus = u.ReviewStatus
	p.IsPublished = u.IsPublished
	p.RejectionReason = u.RejectionReason
	p.ReviewNotes = u.ReviewNotes
	at := u.ReviewedAt
	p.ReviewedAt = &at
	return nil
}

func (s *memStore) ListPending(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.pitches {
		if p.ReviewStatus == model.StatusPending && p.ReviewedAt == nil && (limit <= 0 || len(ids) < limit) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) CreatePitch(_ context.Context, p *model.Pitch) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pitches[p.ID] = p
	return p.ID, nil
}

func (s *memStore) CreateDemo(_ context.Context, d *model.Demo) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demos[d.PitchID] = d
	return d.ID, nil
}

func (s *memStore) Close() error { return nil }

// evaluatorFunc 函数适配器
type evaluatorFunc func(ctx context.Context, pitch *model.Pitch, demo *model.Demo) (*model.EvaluationResult, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, pitch *model.Pitch, demo *model.Demo) (*model.EvaluationResult, error) {
	return f(ctx, pitch, demo)
}

// recorder 记录收到的通知
type recorder struct {
	mu   sync.Mutex
	sent []*model.Notification
	err  error
}

func (r *recorder) Notify(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recorder) all() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Notification(nil), r.sent...)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func pendingPitch(id string) *model.Pitch {
	return &model.Pitch{ID: id, StartupName: "ClaimPilot", FounderID: "f-" + id, ReviewStatus: model.StatusPending}
}

func approve(context.Context, *model.Pitch, *model.Demo) (*model.EvaluationResult, error) {
	return &model.EvaluationResult{
		Score:       90,
		Status:      model.StatusApproved,
		IsPublished: true,
		Notes:       &model.ReviewNotes{Evaluator: "fast_gate"},
	}, nil
}

func newTestEngine(store storage.PitchStore, fast, deep Evaluator, n notify.Notifier) *Engine {
	return New(Options{
		Store:         store,
		FastGate:      fast,
		Deep:          deep,
		Notifier:      n,
		NotifyTimeout: time.Second,
		Now:           func() time.Time { return fixedNow },
	})
}

func TestRun_FastGateWritesAndNotifies(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	rec := &recorder{}
	e := newTestEngine(store, evaluatorFunc(approve), nil, rec)

	res, err := e.FastGate(context.Background(), " p-1 ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, res.Status)
	assert.NotNil(t, res.Flags)

	p := store.pitches["p-1"]
	assert.Equal(t, 90, p.QualityScore)
	assert.Equal(t, model.StatusApproved, p.ReviewStatus)
	assert.True(t, p.IsPublished)
	require.NotNil(t, p.ReviewedAt)
	assert.Equal(t, fixedNow, *p.ReviewedAt)

	e.Wait()
	sent := rec.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "p-1", sent[0].PitchID)
	assert.Equal(t, "f-p-1", sent[0].FounderID)
	assert.Equal(t, string(ModeFastGate), sent[0].Kind)
	assert.Equal(t, model.StatusApproved, sent[0].Status)
}

func TestRun_InputErrors(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	called := false
	fast := evaluatorFunc(func(ctx context.Context, p *model.Pitch, d *model.Demo) (*model.EvaluationResult, error) {
		called = true
		return approve(ctx, p, d)
	})
	e := newTestEngine(store, fast, nil, &recorder{})

	_, err := e.FastGate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.FastGate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPitchNotFound)

	_, err = e.Run(context.Background(), Mode("other"), "p-1")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.False(t, called)
	assert.Zero(t, store.saves)
}

func TestRun_DeepFailureDoesNotMutate(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	rec := &recorder{}
	deep := evaluatorFunc(func(context.Context, *model.Pitch, *model.Demo) (*model.EvaluationResult, error) {
		return nil, errors.New("model timeout")
	})
	e := newTestEngine(store, nil, deep, rec)

	res, err := e.DeepAnalysis(context.Background(), "p-1")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEvaluationFailed)

	e.Wait()
	assert.Zero(t, store.saves)
	assert.Equal(t, model.StatusPending, store.pitches["p-1"].ReviewStatus)
	assert.Nil(t, store.pitches["p-1"].ReviewedAt)
	assert.Empty(t, rec.all())
}

func TestRun_DeepReceivesDemo(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"), pendingPitch("p-2"))
	store.demos["p-1"] = &model.Demo{ID: "d-1", PitchID: "p-1"}

	seen := map[string]*model.Demo{}
	deep := evaluatorFunc(func(_ context.Context, p *model.Pitch, d *model.Demo) (*model.EvaluationResult, error) {
		seen[p.ID] = d
		return &model.EvaluationResult{Score: 60, Status: model.StatusNeedsRevision, Analysis: &model.DeepAnalysis{OverallScore: 60}}, nil
	})
	fast := evaluatorFunc(func(ctx context.Context, p *model.Pitch, d *model.Demo) (*model.EvaluationResult, error) {
		assert.Nil(t, d)
		return approve(ctx, p, d)
	})
	e := newTestEngine(store, fast, deep, &recorder{})

	_, err := e.DeepAnalysis(context.Background(), "p-1")
	require.NoError(t, err)
	_, err = e.DeepAnalysis(context.Background(), "p-2")
	require.NoError(t, err)
	_, err = e.FastGate(context.Background(), "p-1")
	require.NoError(t, err)
	e.Wait()

	require.NotNil(t, seen["p-1"])
	assert.Equal(t, "d-1", seen["p-1"].ID)
	assert.Nil(t, seen["p-2"])
}

func TestRun_NotifierFailureIsSwallowed(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	rec := &recorder{err: errors.New("smtp down")}
	e := newTestEngine(store, evaluatorFunc(approve), nil, rec)

	res, err := e.FastGate(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, res.Status)

	e.Wait()
	assert.Len(t, rec.all(), 1)
	assert.Equal(t, model.StatusApproved, store.pitches["p-1"].ReviewStatus)
}

func TestRun_NotifierPanicIsRecovered(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	boom := notify.NotifierFunc(func(context.Context, *model.Notification) error {
		panic("boom")
	})
	e := newTestEngine(store, evaluatorFunc(approve), nil, boom)

	_, err := e.FastGate(context.Background(), "p-1")
	require.NoError(t, err)
	e.Wait()
}

func TestRun_NotificationSurvivesRequestCancel(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	got := make(chan error, 1)
	n := notify.NotifierFunc(func(ctx context.Context, _ *model.Notification) error {
		got <- ctx.Err()
		return nil
	})
	e := newTestEngine(store, evaluatorFunc(approve), nil, n)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := e.FastGate(ctx, "p-1")
	require.NoError(t, err)
	cancel()
	e.Wait()

	assert.NoError(t, <-got)
}

func TestRun_SaveFailure(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	store.saveErr = errors.New("connection reset")
	rec := &recorder{}
	e := newTestEngine(store, evaluatorFunc(approve), nil, rec)

	_, err := e.FastGate(context.Background(), "p-1")
	assert.Error(t, err)
	e.Wait()
	assert.Empty(t, rec.all())
}

func TestSweep(t *testing.T) {
	done := pendingPitch("p-3")
	done.ReviewStatus = model.StatusApproved
	store := newMemStore(pendingPitch("p-1"), pendingPitch("p-2"), done)

	var mu sync.Mutex
	var gated []string
	fast := evaluatorFunc(func(ctx context.Context, p *model.Pitch, d *model.Demo) (*model.EvaluationResult, error) {
		mu.Lock()
		gated = append(gated, p.ID)
		mu.Unlock()
		return approve(ctx, p, d)
	})
	e := newTestEngine(store, fast, nil, &recorder{})

	n, err := e.Sweep(context.Background(), 10)
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, gated)

	n, err = e.Sweep(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweep_SkipsDeepAnalysedPending(t *testing.T) {
	store := newMemStore(pendingPitch("p-1"))
	rec := &recorder{}
	fastCalls := 0
	fast := evaluatorFunc(func(ctx context.Context, p *model.Pitch, d *model.Demo) (*model.EvaluationResult, error) {
		fastCalls++
		return approve(ctx, p, d)
	})
	deep := evaluatorFunc(func(context.Context, *model.Pitch, *model.Demo) (*model.EvaluationResult, error) {
		return &model.EvaluationResult{
			Score:    45,
			Flags:    []string{"thin moat"},
			Status:   model.StatusPending,
			Notes:    &model.ReviewNotes{Evaluator: string(ModeDeepAnalysis), Strengths: []string{"clear niche"}},
			Analysis: &model.DeepAnalysis{OverallScore: 45, Strengths: []string{"clear niche"}},
		}, nil
	})
	e := newTestEngine(store, fast, deep, rec)

	_, err := e.DeepAnalysis(context.Background(), "p-1")
	require.NoError(t, err)

	n, err := e.Sweep(context.Background(), 10)
	require.NoError(t, err)
	e.Wait()

	assert.Zero(t, n)
	assert.Zero(t, fastCalls)
	p, err := store.GetPitch(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, p.ReviewStatus)
	require.NotNil(t, p.ReviewNotes)
	assert.Equal(t, string(ModeDeepAnalysis), p.ReviewNotes.Evaluator)
	assert.Equal(t, []string{"clear niche"}, p.ReviewNotes.Strengths)
	assert.Len(t, rec.all(), 1)
}
