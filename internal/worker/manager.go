package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"socialmaps/internal/logger"
	"socialmaps/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	readErrorBackoff = time.Second

	fallbackInstance = "socialmaps"
)

// EventHandler handles a single stream event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.Event) error
}

// Manager orchestrates worker goroutines that consume the notification stream.
type Manager struct {
	consumer    queue.Consumer
	handler     EventHandler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	instance    string
	log         *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
	// Instance prefixes consumer names. It must survive restarts so a
	// restarted process reads back the pending entries it left unacked.
	// The hostname is used when empty.
	Instance string
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		Instance:     defaultInstance(),
	}
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return fallbackInstance
	}
	return host
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.Instance == "" {
		cfg.Instance = defaultInstance()
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		instance:    cfg.Instance,
		log:         logger.Named("worker_manager"),
	}
}

// Start ensures the consumer group and spins up the workers. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamNotifications, queue.ConsumerGroupPush); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, m.consumerName(i))
	}

	m.log.Info("workers started",
		zap.Int("count", m.workerCount),
		zap.String("stream", queue.StreamNotifications),
		zap.String("group", queue.ConsumerGroupPush),
	)
	return nil
}

// Stop cancels the workers and blocks until all of them return.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.log.Info("workers stopped")
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log := m.log.With(zap.Int("worker", workerID), zap.String("consumer", consumerName))

	// replay anything this consumer left unacked before a restart
	m.processPending(log, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(log, consumerName)
		}
	}
}

func (m *Manager) processPending(log *zap.Logger, consumerName string) {
	for m.ctx.Err() == nil {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamNotifications, queue.ConsumerGroupPush, consumerName, m.batchSize)
		if err != nil {
			log.Warn("read pending failed", zap.Error(err))
			return
		}
		if len(messages) == 0 {
			return
		}

		log.Info("processing pending messages", zap.Int("count", len(messages)))
		m.handleMessages(log, messages)
	}
}

func (m *Manager) processMessages(log *zap.Logger, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamNotifications,
		queue.ConsumerGroupPush,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Warn("read failed", zap.Error(err))
		select {
		case <-m.ctx.Done():
		case <-time.After(readErrorBackoff):
		}
		return
	}

	m.handleMessages(log, messages)
}

// handleMessages acks every message, including failed ones, so a poison event cannot loop forever.
func (m *Manager) handleMessages(log *zap.Logger, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Error("handler failed", zap.String("msg_id", msg.ID), zap.String("type", msg.Event.Type), zap.Error(err))
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamNotifications, queue.ConsumerGroupPush, msg.ID); err != nil {
			log.Error("ack failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
	}
}

func (m *Manager) consumerName(workerID int) string {
	return fmt.Sprintf("%s-worker-%d", m.instance, workerID)
}
