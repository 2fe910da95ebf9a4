package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
)

var errServiceDown = errors.New("service down")

// fakeEmbedder возвращает заранее заданные векторы по тексту.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]error
	calls   []string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors: make(map[string][]float32),
		fail:    make(map[string]error),
	}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, text)
	if err, ok := f.fail[text]; ok {
		return nil, e.NewEmbeddingServiceError("embed", err)
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}

	return []float32{1, 1, 1}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []*usecase.OutboxEvent
}

func (f *fakeOutbox) Create(_ context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeOutbox) GetAndMarkAsProcessing(context.Context, int) ([]*usecase.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkAsProcessed(context.Context, int64) error { return nil }

func (f *fakeOutbox) MarkAsPending(context.Context, int64) error { return nil }

func (f *fakeOutbox) ReleaseStale(context.Context, time.Duration) (int64, error) { return 0, nil }

type fakeEncoder struct{}

func (fakeEncoder) EncodeEmbeddingEvent(event *domain.EmbeddingEvent) ([]byte, error) {
	return []byte(event.ConditionID), nil
}

type fakeIndex struct {
	upserted  []domain.IndexPoint
	upsertErr error
	scored    []domain.ScoredID
	searchErr error
}

func (f *fakeIndex) Upsert(_ context.Context, points []domain.IndexPoint) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeIndex) Search(context.Context, []float32, float64, int) ([]domain.ScoredID, error) {
	return f.scored, f.searchErr
}

type fakeArchive struct {
	reports []*usecase.RunReport
	err     error
}

func (f *fakeArchive) Archive(_ context.Context, report *usecase.RunReport) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.reports = append(f.reports, report)
	return "reports/" + report.RunID + ".json", nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	set     chan struct{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]float32), set: make(chan struct{}, 8)}
}

func (f *fakeCache) GetQueryEmbedding(_ context.Context, model string, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[model+"|"+text], nil
}

func (f *fakeCache) SetQueryEmbedding(_ context.Context, model string, text string, vec []float32) error {
	f.mu.Lock()
	f.entries[model+"|"+text] = vec
	f.mu.Unlock()
	f.set <- struct{}{}
	return nil
}

type failingMatcher struct{}

func (failingMatcher) MatchConditions(context.Context, []float32, float64, int) ([]domain.ConditionMatch, error) {
	return nil, errServiceDown
}

// staticMatcher отдаёт фиксированный ответ независимо от запроса.
type staticMatcher struct {
	matches []domain.ConditionMatch
}

func (s staticMatcher) MatchConditions(context.Context, []float32, float64, int) ([]domain.ConditionMatch, error) {
	return s.matches, nil
}

// newBufferLogger пишет всё в буфер, чтобы тесты могли проверять сообщения.
func newBufferLogger() (logger.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logger.NewSlogLoggerWithWriter(buf, "debug", "text"), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func ptsdAndTinnitus() []domain.Condition {
	return []domain.Condition{
		{ID: "1", Name: "PTSD", DCCode: "9411", Description: "Post-traumatic stress disorder"},
		{ID: "2", Name: "Tinnitus", DCCode: "6260", Description: "Ringing in the ears"},
	}
}
