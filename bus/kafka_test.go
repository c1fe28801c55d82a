package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
	chaterrors "chat-relay/errors"
)

type fakeProducer struct {
	mu       sync.Mutex
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	p.written = append(p.written, msgs...)
	return nil
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProducer) messages() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.written...)
}

type fakeConsumer struct {
	incoming  chan kafka.Message
	mu        sync.Mutex
	committed int
	closed    bool
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{incoming: make(chan kafka.Message, 16)}
}

func (c *fakeConsumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (c *fakeConsumer) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed += len(msgs)
	return nil
}

func (c *fakeConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConsumer) commitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

type busFixture struct {
	bus           *KafkaEventBus
	producer      *fakeProducer
	consumer      *fakeConsumer
	consumerCount func() int
}

func newBusFixture() busFixture {
	cfg := Config{
		BootstrapServers:  "localhost:9092",
		TopicsPrefix:      "chat",
		ConsumerGroupID:   "chat-relay-test",
		HeartbeatInterval: 10 * time.Millisecond,
		Enabled:           true,
	}
	fp := &fakeProducer{}
	fc := newFakeConsumer()

	var mu sync.Mutex
	created := 0

	b := NewKafkaEventBus(cfg, slog.Default())
	b.checkBroker = func(context.Context, string) error { return nil }
	b.newProducer = func(Config) producer { return fp }
	b.newConsumer = func(_ Config, _ []string) consumer {
		mu.Lock()
		defer mu.Unlock()
		created++
		return fc
	}
	return busFixture{
		bus:      b,
		producer: fp,
		consumer: fc,
		consumerCount: func() int {
			mu.Lock()
			defer mu.Unlock()
			return created
		},
	}
}

func (f busFixture) deliver(t *testing.T, evt event.Event) {
	t.Helper()
	value, err := encodeEvent(evt)
	require.NoError(t, err)
	f.consumer.incoming <- kafka.Message{Topic: f.bus.cfg.TopicName(evt.Kind), Value: value}
}

func awaitEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
		return event.Event{}
	}
}

func TestKafkaEventBus_Publish_RequiresRunningBus(t *testing.T) {
	req := require.New(t)
	f := newBusFixture()

	err := f.bus.Publish(context.Background(), []event.Event{event.NewConversationCreated("c1", "alice")})
	req.ErrorIs(err, chaterrors.ErrBrokerUnavailable)
}

func TestKafkaEventBus_Start_FailsWhenBrokerUnreachable(t *testing.T) {
	req := require.New(t)
	f := newBusFixture()
	f.bus.checkBroker = func(context.Context, string) error { return errors.New("connection refused") }

	err := f.bus.Start(context.Background())
	req.ErrorIs(err, chaterrors.ErrBrokerUnavailable)
	req.Equal(StateStopped, f.bus.State())
}

func TestKafkaEventBus_Publish_PreservesOrderAndTopics(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()
	req.NoError(f.bus.Start(ctx))
	defer f.bus.Stop(ctx)

	events := []event.Event{
		event.NewConversationCreated("c1", "alice"),
		event.NewMessageCreated("m1", "c1", "hello"),
	}
	req.NoError(f.bus.Publish(ctx, events))

	written := f.producer.messages()
	req.Len(written, 2)
	req.Equal("chat.conversation_created", written[0].Topic)
	req.Equal("c1", string(written[0].Key))
	req.Equal("chat.message_created", written[1].Topic)
	req.Equal("m1", string(written[1].Key))

	decoded, err := decodeEvent(written[1].Value)
	req.NoError(err)
	req.Equal("hello", decoded.Payload["content"])
}

func TestKafkaEventBus_Publish_EmptySliceIsNoOp(t *testing.T) {
	req := require.New(t)
	f := newBusFixture()
	req.NoError(f.bus.Publish(context.Background(), nil))
	req.Empty(f.producer.messages())
}

func TestKafkaEventBus_ConsumerStartsLazily(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	// No listener, no consumer.
	req.NoError(f.bus.Start(ctx))
	req.Zero(f.consumerCount())

	received := make(chan event.Event, 1)
	f.bus.Register(event.MessageCreated, ListenerFunc(func(_ context.Context, evt event.Event) error {
		received <- evt
		return nil
	}))
	req.Equal(1, f.consumerCount())

	f.deliver(t, event.NewMessageCreated("m1", "c1", "hello"))
	evt := awaitEvent(t, received)
	req.Equal("m1", evt.Payload["message_id"])

	req.NoError(f.bus.Stop(ctx))
}

func TestKafkaEventBus_RegisterBeforeStart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	received := make(chan event.Event, 1)
	f.bus.Register(event.ConversationTruncated, ListenerFunc(func(_ context.Context, evt event.Event) error {
		received <- evt
		return nil
	}))
	req.Zero(f.consumerCount())

	req.NoError(f.bus.Start(ctx))
	req.Equal(1, f.consumerCount())

	f.deliver(t, event.NewConversationTruncated("c1", "m2"))
	evt := awaitEvent(t, received)
	req.Equal("m2", evt.Payload["from_message_id"])

	req.NoError(f.bus.Stop(ctx))
}

func TestKafkaEventBus_ConsumerStartsExactlyOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()
	req.NoError(f.bus.Start(ctx))
	defer f.bus.Stop(ctx)

	noop := ListenerFunc(func(context.Context, event.Event) error { return nil })
	f.bus.Register(event.MessageCreated, noop)
	f.bus.Register(event.MessageUpdated, noop)
	f.bus.Register(event.MessageCreated, noop)

	req.Equal(1, f.consumerCount())
}

func TestKafkaEventBus_ListenerFailuresAreContained(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	received := make(chan event.Event, 1)
	f.bus.Register(event.MessageCreated, ListenerFunc(func(context.Context, event.Event) error {
		return errors.New("projection is broken")
	}))
	f.bus.Register(event.MessageCreated, ListenerFunc(func(context.Context, event.Event) error {
		panic("projection is very broken")
	}))
	f.bus.Register(event.MessageCreated, ListenerFunc(func(_ context.Context, evt event.Event) error {
		received <- evt
		return nil
	}))
	req.NoError(f.bus.Start(ctx))

	f.deliver(t, event.NewMessageCreated("m1", "c1", "hello"))
	evt := awaitEvent(t, received)
	req.Equal("m1", evt.Payload["message_id"])

	// The failing delivery still gets its offset committed.
	req.Eventually(func() bool { return f.consumer.commitCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	req.NoError(f.bus.Stop(ctx))
}

func TestKafkaEventBus_UndecodableMessagesAreDropped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	received := make(chan event.Event, 1)
	f.bus.Register(event.MessageCreated, ListenerFunc(func(_ context.Context, evt event.Event) error {
		received <- evt
		return nil
	}))
	req.NoError(f.bus.Start(ctx))

	f.consumer.incoming <- kafka.Message{Topic: "chat.message_created", Value: []byte("{garbage")}
	f.deliver(t, event.NewMessageCreated("m2", "c1", "still alive"))

	evt := awaitEvent(t, received)
	req.Equal("m2", evt.Payload["message_id"])
	// Both the dropped and the delivered message are committed.
	req.Eventually(func() bool { return f.consumer.commitCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	req.NoError(f.bus.Stop(ctx))
}

func TestKafkaEventBus_EventsWithoutListenerAreDropped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	received := make(chan event.Event, 1)
	f.bus.Register(event.MessageCreated, ListenerFunc(func(_ context.Context, evt event.Event) error {
		received <- evt
		return nil
	}))
	req.NoError(f.bus.Start(ctx))

	f.deliver(t, event.NewConversationCreated("c1", "alice"))
	f.deliver(t, event.NewMessageCreated("m1", "c1", "hello"))

	evt := awaitEvent(t, received)
	req.Equal(event.MessageCreated, evt.Kind)

	req.NoError(f.bus.Stop(ctx))
}

func TestKafkaEventBus_StopIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	// Stopping a bus that never started is fine.
	req.NoError(f.bus.Stop(ctx))

	req.NoError(f.bus.Start(ctx))
	f.bus.Register(event.MessageCreated, ListenerFunc(func(context.Context, event.Event) error { return nil }))

	req.NoError(f.bus.Stop(ctx))
	req.NoError(f.bus.Stop(ctx))
	req.Equal(StateStopped, f.bus.State())
	req.True(f.producer.closed)
	req.True(f.consumer.closed)
}

func TestKafkaEventBus_StartIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newBusFixture()

	req.NoError(f.bus.Start(ctx))
	req.NoError(f.bus.Start(ctx))
	req.Equal(StateRunning, f.bus.State())
	req.NoError(f.bus.Stop(ctx))
}
