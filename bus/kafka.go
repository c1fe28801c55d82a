package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"chat-relay/domain/event"
	chaterrors "chat-relay/errors"
)

type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// producer and consumer are narrow seams over segmentio/kafka-go so the
// dispatch logic is testable without a live broker.
type producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventBus owns one producer connection and at most one consumer
// group reader. The producer opens on Start; the consumer starts
// lazily, exactly once, as soon as the bus is running and at least one
// listener is registered. Topics nobody listens to are never consumed.
type KafkaEventBus struct {
	cfg Config
	log *slog.Logger

	mu              sync.RWMutex
	state           State
	listeners       map[string][]Listener
	producer        producer
	consumer        consumer
	consumerStarted bool
	loopCancel      context.CancelFunc
	loopDone        chan struct{}

	newProducer func(cfg Config) producer
	newConsumer func(cfg Config, topics []string) consumer
	checkBroker func(ctx context.Context, addr string) error
}

func NewKafkaEventBus(cfg Config, log *slog.Logger) *KafkaEventBus {
	return &KafkaEventBus{
		cfg:         cfg,
		log:         log,
		listeners:   make(map[string][]Listener),
		newProducer: newKafkaWriter,
		newConsumer: newKafkaReader,
		checkBroker: dialBroker,
	}
}

func newKafkaWriter(cfg Config) producer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers()...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func newKafkaReader(cfg Config, topics []string) consumer {
	// CommitInterval > 0 batches offset commits asynchronously, which is
	// the auto-commit behaviour the config surface promises.
	var commitInterval time.Duration
	if cfg.EnableAutoCommit {
		commitInterval = time.Second
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers(),
		GroupID:           cfg.ConsumerGroupID,
		GroupTopics:       topics,
		QueueCapacity:     cfg.MaxPollRecords,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       cfg.startOffset(),
		CommitInterval:    commitInterval,
	})
}

func dialBroker(ctx context.Context, addr string) error {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (b *KafkaEventBus) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Start opens the producer connection. A connection failure here is
// fatal and surfaced to the caller. The consumer is not opened unless
// listeners were registered beforehand.
func (b *KafkaEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateStopped {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStarting
	b.mu.Unlock()

	broker := b.cfg.Brokers()[0]
	if err := b.checkBroker(ctx, broker); err != nil {
		b.mu.Lock()
		b.state = StateStopped
		b.mu.Unlock()
		return fmt.Errorf("connecting to %s: %v: %w", broker, err, chaterrors.ErrBrokerUnavailable)
	}

	b.mu.Lock()
	b.producer = b.newProducer(b.cfg)
	b.state = StateRunning
	hasListeners := len(b.listeners) > 0
	b.mu.Unlock()

	b.log.Info("Event bus started", "brokers", b.cfg.BootstrapServers)
	if hasListeners {
		b.startConsumer()
	}
	return nil
}

// Register adds a listener for an event kind. The first registration
// while running triggers the consumer start; later registrations only
// extend the dispatch table. Kinds registered after the consumer
// started are not subscribed until the next start.
func (b *KafkaEventBus) Register(kind string, listener Listener) {
	b.mu.Lock()
	b.listeners[kind] = append(b.listeners[kind], listener)
	running := b.state == StateRunning
	b.mu.Unlock()

	b.log.Debug("Listener registered", "kind", kind)
	if running {
		b.startConsumer()
	}
}

// startConsumer opens the consumer group reader exactly once, over the
// topics of every kind registered so far, and launches the loop.
func (b *KafkaEventBus) startConsumer() {
	b.mu.Lock()
	if b.consumerStarted || len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	topics := make([]string, 0, len(b.listeners))
	for kind := range b.listeners {
		topics = append(topics, b.cfg.TopicName(kind))
	}
	sort.Strings(topics)

	b.consumer = b.newConsumer(b.cfg, topics)
	b.consumerStarted = true
	loopCtx, cancel := context.WithCancel(context.Background())
	b.loopCancel = cancel
	b.loopDone = make(chan struct{})
	done := b.loopDone
	b.mu.Unlock()

	b.log.Info("Consumer started", "topics", topics, "group", b.cfg.ConsumerGroupID)
	go b.consumeLoop(loopCtx, done)
}

func (b *KafkaEventBus) consumeLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		b.mu.RLock()
		reader := b.consumer
		b.mu.RUnlock()
		if reader == nil {
			return
		}

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.log.Debug("Consumer loop cancelled")
				return
			}
			b.log.Error("Fetching message failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.cfg.HeartbeatInterval):
			}
			continue
		}

		b.dispatch(ctx, msg)

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			b.log.Error("Committing offset failed", "topic", msg.Topic, "error", err)
		}
	}
}

// dispatch reconstructs the event and invokes every listener registered
// for its kind. An undecodable message is dropped with a diagnostic; an
// unknown kind likewise.
func (b *KafkaEventBus) dispatch(ctx context.Context, msg kafka.Message) {
	evt, err := decodeEvent(msg.Value)
	if err != nil {
		b.log.Error("Dropping undecodable message", "topic", msg.Topic, "error", err)
		return
	}

	b.mu.RLock()
	listeners := slices.Clone(b.listeners[evt.Kind])
	b.mu.RUnlock()

	if len(listeners) == 0 {
		b.log.Debug("No listener for event kind", "kind", evt.Kind)
		return
	}
	for _, listener := range listeners {
		b.invoke(ctx, listener, evt)
	}
}

// invoke shields the consumption loop from listener failures so one
// broken listener cannot block delivery to the others.
func (b *KafkaEventBus) invoke(ctx context.Context, listener Listener, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Listener panicked", "kind", evt.Kind, "panic", r)
		}
	}()
	if err := listener.Handle(ctx, evt); err != nil {
		b.log.Error("Listener failed", "kind", evt.Kind, "error", err)
	}
}

// Publish serializes each event and sends it to the topic derived from
// its kind. Events within one call are sent serially, so event i is
// handed to the broker before i+1. There is no retry here; transient
// failures surface to the caller.
func (b *KafkaEventBus) Publish(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	b.mu.RLock()
	state := b.state
	writer := b.producer
	b.mu.RUnlock()
	if state != StateRunning || writer == nil {
		return fmt.Errorf("bus is %s: %w", state, chaterrors.ErrBrokerUnavailable)
	}

	for _, evt := range events {
		value, err := encodeEvent(evt)
		if err != nil {
			return err
		}
		topic := b.cfg.TopicName(evt.Kind)
		msg := kafka.Message{
			Topic: topic,
			Key:   []byte(evt.AggregateID),
			Value: value,
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("publishing %s to %s: %v: %w", evt.Kind, topic, err, chaterrors.ErrBrokerUnavailable)
		}
		b.log.Debug("Event published", "kind", evt.Kind, "topic", topic)
	}
	return nil
}

// Stop cancels the consumption loop, waits for it to exit, then closes
// consumer and producer. Idempotent and safe to call when never started.
func (b *KafkaEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateRunning {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStopping
	cancel := b.loopCancel
	done := b.loopDone
	reader := b.consumer
	writer := b.producer
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			b.log.Warn("Timed out waiting for consumer loop to exit")
		}
	}

	var errs []error
	if reader != nil {
		if err := reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing consumer: %w", err))
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing producer: %w", err))
		}
	}

	b.mu.Lock()
	b.state = StateStopped
	b.producer = nil
	b.consumer = nil
	b.consumerStarted = false
	b.loopCancel = nil
	b.loopDone = nil
	b.mu.Unlock()

	b.log.Info("Event bus stopped")
	return errors.Join(errs...)
}
