package kafka

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/internal/domain"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOutbox struct {
	mu        sync.Mutex
	events    []*usecase.OutboxEvent
	processed []int64
	pending   []int64
}

func (m *memOutbox) Create(_ context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return event, nil
}

func (m *memOutbox) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []*usecase.OutboxEvent
	for _, ev := range m.events {
		if ev.Status != usecase.Pending {
			continue
		}
		ev.Status = usecase.Processing
		res = append(res, ev)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

func (m *memOutbox) MarkAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id-1].Status = usecase.Processed
	m.processed = append(m.processed, id)
	return nil
}

func (m *memOutbox) MarkAsPending(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id-1].Status = usecase.Pending
	m.pending = append(m.pending, id)
	return nil
}

func (m *memOutbox) ReleaseStale(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, ev := range m.events {
		if ev.Status == usecase.Processing {
			ev.Status = usecase.Pending
			n++
		}
	}
	return n, nil
}

type recordingProducer struct {
	mu   sync.Mutex
	reqs []*usecase.WriteRawMessageReq
	err  error
}

func (r *recordingProducer) WriteRawMessage(_ context.Context, req *usecase.WriteRawMessageReq) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

func seedOutbox(t *testing.T, n int) *memOutbox {
	t.Helper()

	outbox := &memOutbox{}
	for i := 0; i < n; i++ {
		event := domain.NewEmbeddingEvent("ev", string(rune('a'+i)), "m", 3, time.Now())
		_, err := outbox.Create(context.Background(), usecase.NewEmbeddingUpdatedOutboxEvent(event, []byte{byte(i)}))
		require.NoError(t, err)
	}
	return outbox
}

func TestEventCodec_Encode(t *testing.T) {
	codec := NewEventCodec()
	occurredAt := time.Date(2025, time.February, 3, 4, 5, 6, 7, time.UTC)
	event := domain.NewEmbeddingEvent("e-1", "cond-1", "text-embedding-ada-002", 1536, occurredAt)

	data, err := codec.EncodeEmbeddingEvent(event)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := codec.DecodeEmbeddingEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestEventCodec_DecodeGarbage(t *testing.T) {
	_, err := NewEventCodec().DecodeEmbeddingEvent([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestOutboxWorker_Drain(t *testing.T) {
	outbox := seedOutbox(t, 5)
	producer := &recordingProducer{}
	worker := NewOutboxWorker(outbox, logger.NewNopLogger(), producer, 2, nil)

	sent, err := worker.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sent)
	assert.Len(t, outbox.processed, 5)
	require.Len(t, producer.reqs, 5)
	assert.Equal(t, "a", producer.reqs[0].Key)
	assert.Equal(t, []byte{0}, producer.reqs[0].Payload)
}

func TestOutboxWorker_Drain_RetryableFailureReturnsEventToQueue(t *testing.T) {
	outbox := seedOutbox(t, 3)
	producer := &recordingProducer{err: errors.New("dial tcp: connection refused")}
	worker := NewOutboxWorker(outbox, logger.NewNopLogger(), producer, 10, nil)

	sent, err := worker.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, sent)
	assert.Equal(t, []int64{1, 2, 3}, outbox.pending)
	for _, ev := range outbox.events {
		assert.Equal(t, usecase.Pending, ev.Status)
	}
	// после первой ошибки остальные события не отправлялись
	assert.Empty(t, producer.reqs)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("read: connection reset by peer")))
	assert.True(t, isRetryableError(errors.New("Broker Not Available")))
	assert.False(t, isRetryableError(errors.New("message too large")))
	assert.False(t, isRetryableError(nil))

	assert.True(t, isRetryableError(e.Wrap("write", kafka.LeaderNotAvailable)))
	assert.False(t, isRetryableError(e.Wrap("write", kafka.MessageSizeTooLarge)))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestOutboxWorker_StartDrainsAndStops(t *testing.T) {
	outbox := seedOutbox(t, 3)
	// событие, зависшее в processing после падения процесса
	outbox.events[2].Status = usecase.Processing
	producer := &recordingProducer{}
	worker := NewOutboxWorker(outbox, logger.NewNopLogger(), producer, 10, nil)

	worker.Start(context.Background())
	require.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.processed) == 3
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	assert.Len(t, producer.reqs, 3)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducer_WriteRawMessage(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducer(logger.NewNopLogger(), &cfg.KafkaCfg{Brokers: []string{"localhost:9092"}, Topic: "t", OutboxBatchSize: 10})
	producer.writer = writer

	err := producer.WriteRawMessage(context.Background(), usecase.NewWriteRawMessageReq("cond-1", []byte("payload")))
	require.NoError(t, err)

	require.Len(t, writer.msgs, 1)
	assert.Equal(t, []byte("cond-1"), writer.msgs[0].Key)
	assert.Equal(t, []byte("payload"), writer.msgs[0].Value)
}
