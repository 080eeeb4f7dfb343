// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/swimmeet-console/internal/meet"
    q "github.com/iliyamo/swimmeet-console/internal/queue"
)

// Publisher sends lane changesets to the lane.changeset queue.  The
// connection is opened on first use and reopened after a failure.
type Publisher struct {
    url string
    log *zap.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel

    now   func() time.Time
    newID func() string
}

// NewPublisher returns a Publisher for the broker at url.  Nothing is
// dialled until the first publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{
        url:   url,
        log:   log,
        now:   func() time.Time { return time.Now().UTC() },
        newID: uuid.NewString,
    }
}

// event builds the message body for a changeset.
func (p *Publisher) event(cs meet.Changeset) q.LaneChangesetEvent {
    return q.LaneChangesetEvent{
        ID:          p.newID(),
        EventID:     cs.EventID,
        Heat:        cs.Heat,
        Assignments: cs.Assignments,
        PublishedAt: p.now().Format(time.RFC3339),
    }
}

// LaneChangeset publishes one changeset as a persistent message.
func (p *Publisher) LaneChangeset(ctx context.Context, cs meet.Changeset) error {
    ev := p.event(cs)
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal lane changeset: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        p.log.Warn("rabbitmq: connect failed", zap.Error(err))
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Timestamp:    p.now(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.LaneChangesetQueue, false, false, pub); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.Uint64("event_id", cs.EventID), zap.Error(err))
        p.reset()
        return err
    }
    return nil
}

// channel returns an open channel, dialling when needed.  Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.LaneChangesetQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
}
