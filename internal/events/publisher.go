package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel all interview events are published on.
const Channel = "interview_events"

const (
	TypeAnswerRecorded = "answer_recorded"
	TypeSkillUpdated   = "skill_updated"
)

// Event is the JSON payload published for downstream consumers.
type Event struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"sessionId,omitempty"`
	InteractionID uint      `json:"interactionId,omitempty"`
	CandidateID   string    `json:"candidateId,omitempty"`
	Skill         string    `json:"skill,omitempty"`
	Score         float64   `json:"score"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher delivers events. Publishing is best effort: the durable store is the
// source of truth and a failed publish never fails the operation that produced it.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = time.Second
)

// RedisPublisher queues events and publishes them from a single worker, so callers
// never wait on Redis. Events are dropped when the queue is full.
type RedisPublisher struct {
	rdb     *redis.Client
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	root   context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisPublisher(redisAddr string, logger *zap.Logger) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:        redisAddr,
		DialTimeout: defaultPublishTimeout,
	})
	return NewRedisPublisherFromClient(rdb, logger)
}

func NewRedisPublisherFromClient(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return newRedisPublisher(rdb, logger, defaultQueueSize, defaultPublishTimeout)
}

func newRedisPublisher(rdb *redis.Client, logger *zap.Logger, queueSize int, timeout time.Duration) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, cancel := context.WithCancel(context.Background())
	p := &RedisPublisher{
		rdb:     rdb,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan Event, queueSize),
		root:    root,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Ping checks connectivity, used by the readiness probe
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish enqueues the event and returns immediately.
func (p *RedisPublisher) Publish(_ context.Context, event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- event:
	default:
		p.logger.Warn("event queue full, dropping event", zap.String("type", event.Type))
	}
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		p.send(event)
	}
}

func (p *RedisPublisher) send(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(p.root, p.timeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("channel", Channel),
			zap.Error(fmt.Errorf("redis publish: %w", err)))
	}
}

// Close flushes queued events for up to one publish timeout, then abandons the rest.
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(p.timeout):
		p.cancel()
		<-p.done
	}
	p.cancel()
	return p.rdb.Close()
}
