// Package kafka publishes order hand-off events to a Kafka topic.
package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/messaging"
)

// ErrQueueFull is returned by Handoff when the outgoing buffer is full.
var ErrQueueFull = errors.New("handoff queue full")

// ErrClosed is returned by Handoff after Close.
var ErrClosed = errors.New("producer closed")

// EventOrderHandoff is the event-type header of hand-off messages.
const EventOrderHandoff = "order.handoff"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ messaging.Handoff = (*Producer)(nil)

// Producer buffers hand-off messages and writes them from one goroutine.
type Producer struct {
	w            messageWriter
	lg           *zap.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer creates a Producer writing to topic on brokers with a buffer
// of buf messages.
func NewProducer(brokers []string, topic string, buf int, lg *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf, lg)
}

func newProducer(w messageWriter, buf int, lg *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:            w,
		lg:           lg,
		writeTimeout: 10 * time.Second,
		inbox:        make(chan kafka.Message, buf),
		closeCh:      make(chan struct{}),
	}
}

// Start launches the writer goroutine. Canceling ctx has the same effect as
// Close.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.Close()
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.finish()
					return
				}
				p.write(m)
			}
		}
	}()
}

// Handoff enqueues msg keyed by order id. It never blocks.
func (p *Producer) Handoff(_ context.Context, msg messaging.Message) error {
	m := kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: Encode(msg),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventOrderHandoff)},
			{Key: "store-id", Value: []byte(msg.StoreID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages; queued ones are still written.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until every queued message was written and the writer
// closed.
func (p *Producer) WaitClosed() { <-p.closeCh }

// Backlog returns the number of hand-offs not yet written.
func (p *Producer) Backlog() int { return len(p.inbox) }

func (p *Producer) drain() {
	for m := range p.inbox {
		p.write(m)
	}
	p.finish()
}

func (p *Producer) finish() {
	if err := p.w.Close(); err != nil {
		p.lg.Warn("Close kafka writer", zap.Error(err))
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.lg.Error("Publish handoff failed",
			zap.ByteString("order_id", m.Key),
			zap.Error(err),
		)
	}
}

// Encode renders msg as the event payload.
func Encode(msg messaging.Message) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(EventOrderHandoff)
	e.FieldStart("storeId")
	e.Str(msg.StoreID)
	e.FieldStart("orderId")
	e.Str(msg.OrderID)
	e.FieldStart("shortId")
	e.Str(msg.ShortID)
	e.FieldStart("destination")
	e.Str(msg.Destination)
	e.FieldStart("text")
	e.Str(msg.Text)
	e.FieldStart("link")
	e.Str(msg.Link)
	e.ObjEnd()
	return e.Bytes()
}
