// internal/realtime/amqp.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var ErrPublisherUnavailable = errors.New("rabbitmq publisher unavailable")

type dialFunc func(url, exchange string) (*amqp.Connection, *amqp.Channel, error)

// AMQPPublisher pushes notifications to a RabbitMQ topic exchange so that
// other processes (websocket gateways, mobile push workers) can consume them.
// A connection the broker drops is redialled on the next Push, at most once
// per redialInterval.
type AMQPPublisher struct {
	url            string
	exchange       string
	timeout        time.Duration
	redialInterval time.Duration
	dial           dialFunc

	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	lastDial time.Time
	closed   bool
}

func NewAMQPPublisher(url, exchange string, timeout time.Duration) (*AMQPPublisher, error) {
	p := newAMQPPublisher(url, exchange, timeout, dialAMQP)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}

	logrus.WithField("exchange", exchange).Info("RabbitMQ notification publisher ready")
	return p, nil
}

func newAMQPPublisher(url, exchange string, timeout time.Duration, dial dialFunc) *AMQPPublisher {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &AMQPPublisher{
		url:            url,
		exchange:       exchange,
		timeout:        timeout,
		redialInterval: 5 * time.Second,
		dial:           dial,
	}
}

func dialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

// connectLocked replaces a missing or dead connection. Callers hold mu.
func (p *AMQPPublisher) connectLocked() error {
	if p.closed {
		return fmt.Errorf("%w: publisher closed", ErrPublisherUnavailable)
	}
	if !p.lastDial.IsZero() && time.Since(p.lastDial) < p.redialInterval {
		return fmt.Errorf("%w: waiting to redial", ErrPublisherUnavailable)
	}
	p.lastDial = time.Now()

	if p.conn != nil && !p.conn.IsClosed() {
		p.conn.Close()
	}
	p.conn, p.channel = nil, nil

	conn, ch, err := p.dial(p.url, p.exchange)
	if err != nil {
		logrus.WithError(err).WithField("exchange", p.exchange).Warn("RabbitMQ dial failed")
		return fmt.Errorf("%w: %w", ErrPublisherUnavailable, err)
	}
	p.conn, p.channel = conn, ch
	if conn != nil {
		go p.watch(conn, conn.NotifyClose(make(chan *amqp.Error, 1)))
	}
	return nil
}

// watch forgets conn once it closes so the next Push redials.
func (p *AMQPPublisher) watch(conn *amqp.Connection, closes <-chan *amqp.Error) {
	reason, ok := <-closes

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != conn {
		return
	}
	if ok && reason != nil {
		logrus.WithFields(logrus.Fields{
			"exchange": p.exchange,
			"code":     reason.Code,
			"reason":   reason.Reason,
		}).Warn("RabbitMQ connection lost")
	}
	p.conn, p.channel = nil, nil
}

func (p *AMQPPublisher) Push(ctx context.Context, topic Topic, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		topic.Key(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Transient,
			Timestamp:    msg.Timestamp,
			ContentType:  "application/json",
			Type:         msg.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic.Key(), err)
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing rabbitmq channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing rabbitmq connection")
		}
	}
	p.conn, p.channel = nil, nil
}
