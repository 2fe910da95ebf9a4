package kafka

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/repository/pgdb"
	"github.com/DRSN-tech/conditions-backend/internal/usecase"
	"github.com/DRSN-tech/conditions-backend/pkg/e"
	"github.com/DRSN-tech/conditions-backend/pkg/jitter"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

const (
	defaultBatchSize = 10
	sweepInterval    = time.Minute
	staleAfter       = 5 * time.Minute
	listenTimeout    = 30 * time.Second
)

// OutboxWorker пересылает события embedding_updated из outbox_events в Kafka.
// Просыпается по NOTIFY, раз в sweepInterval возвращает в очередь зависшие события и дочищает outbox.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	batchSize int
	connCfg   *pgx.ConnConfig // nil - без LISTEN
	reconnect jitter.Backoff

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	batchSize int,
	connCfg *pgx.ConnConfig,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		batchSize: batchSize,
		connCfg:   connCfg,
		reconnect: jitter.NewBackoff(2*time.Second, time.Minute),
		stop:      make(chan struct{}),
	}
}

// Start запускает фоновые горутины воркера; Stop дожидается их завершения.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sweep(ctx)
	}()

	if w.connCfg == nil {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.listen(ctx)
	}()
}

func (w *OutboxWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

// Drain обрабатывает батчи, пока в outbox есть ожидающие события. Возвращает число отправленных.
func (w *OutboxWorker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		sent, hasMore, err := w.processBatch(ctx)
		total += sent
		if err != nil {
			return total, err
		}
		if !hasMore {
			return total, nil
		}
	}
}

// sweep сразу дочищает outbox, затем повторяет это по таймеру.
func (w *OutboxWorker) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	w.logger.Infof("Draining pending outbox events on startup...")
	for {
		if released, err := w.repo.ReleaseStale(ctx, staleAfter); err != nil {
			w.logger.Warnf("release stale outbox events: %v", err)
		} else if released > 0 {
			w.logger.Infof("Returned %d stale outbox events to the queue", released)
		}

		if _, err := w.Drain(ctx); err != nil {
			w.logger.Warnf("outbox drain failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
		}
	}
}

// listen держит отдельное соединение с LISTEN на канал outbox и переподключается с backoff.
func (w *OutboxWorker) listen(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		conn, err := w.subscribe(ctx)
		if err == nil {
			attempt = 0
			err = w.waitNotifications(ctx, conn)
			conn.Close(context.Background())
		}
		if w.stopped(ctx) {
			return
		}

		w.logger.Warnf("outbox listener: %v, reconnecting", err)
		if !w.sleep(ctx, w.reconnect(attempt)) {
			return
		}
	}
}

func (w *OutboxWorker) subscribe(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, w.connCfg)
	if err != nil {
		return nil, e.Wrap("failed to connect for LISTEN", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgdb.OutboxChannel); err != nil {
		conn.Close(context.Background())
		return nil, e.Wrap("failed to LISTEN", err)
	}

	w.logger.Infof("Subscribed to '%s' channel", pgdb.OutboxChannel)
	return conn, nil
}

// waitNotifications возвращает ошибку соединения; nil - воркер остановлен.
func (w *OutboxWorker) waitNotifications(ctx context.Context, conn *pgx.Conn) error {
	for !w.stopped(ctx) {
		waitCtx, cancel := context.WithTimeout(ctx, listenTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}

		if notif.Channel != pgdb.OutboxChannel {
			continue
		}
		w.logger.Debugf("Received outbox notification, draining outbox events")
		if _, err := w.Drain(ctx); err != nil {
			w.logger.Warnf("outbox drain failed: %v", err)
		}
	}

	return nil
}

func (w *OutboxWorker) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stop:
		return true
	default:
		return false
	}
}

// sleep ждёт d и возвращает false, если воркер останавливают.
func (w *OutboxWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stop:
		return false
	}
}

// processBatch возвращает число отправленных событий и признак того, что стоит забрать ещё батч.
func (w *OutboxWorker) processBatch(ctx context.Context) (int, bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return 0, false, err
	}

	if len(events) == 0 {
		return 0, false, nil
	}

	sent := 0
	for i, event := range events {
		if err := w.publish(ctx, event); err != nil {
			w.logger.Warnf("event %s: %v", event.EventID, err)
			if isRetryableError(err) {
				// брокер недоступен: остаток батча возвращаем в очередь
				w.release(ctx, events[i:])
				return sent, false, nil
			}
			// постоянная ошибка: событие останется в processing до ReleaseStale
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
		sent++
	}

	return sent, len(events) == w.batchSize, nil
}

func (w *OutboxWorker) release(ctx context.Context, events []*usecase.OutboxEvent) {
	for _, event := range events {
		if err := w.repo.MarkAsPending(ctx, event.ID); err != nil {
			w.logger.Warnf("mark pending failed: %v", err)
		}
	}
}

// publish отправляет событие с ключом по id записи.
func (w *OutboxWorker) publish(ctx context.Context, event *usecase.OutboxEvent) error {
	return w.producer.WriteRawMessage(ctx, usecase.NewWriteRawMessageReq(event.ConditionID, event.Payload))
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var kafkaErr kafka.Error
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	} {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}

	return false
}
