package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var errDeliveriesClosed = errors.New("delivery channel closed")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	// dial replaces connect when set; tests use it to skip the broker.
	dial func() error

	failureCount int64
	state        int32
	// lastFailure is unix nanoseconds; Publish runs from concurrent callers.
	lastFailure int64
}

func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) log() *applog.Logger {
	if c.logger == nil {
		return applog.FromContext(context.Background()).WithComponent(applog.ComponentAMQP)
	}
	return c.logger.WithComponent(applog.ComponentAMQP)
}

// connect replaces any existing connection with a fresh one.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) redial() error {
	if c.dial != nil {
		return c.dial()
	}
	return c.connect()
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

// LedgerChanged publishes c; it satisfies ledger.Notifier.
func (c *Client) LedgerChanged(ctx context.Context, ch ledger.Change) error {
	return c.Publish(ctx, NewLedgerChangedMessage(ch))
}

// Publish sends msg as a persistent message. While the circuit breaker is open
// it fails fast without touching the broker.
func (c *Client) Publish(ctx context.Context, msg *LedgerChangedMessage) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish ledger change: circuit breaker is open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel := c.currentChannel()
	if channel == nil {
		if err := c.redial(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		channel = c.currentChannel()
		if channel == nil {
			c.recordFailure()
			return fmt.Errorf("publish message: channel closed after reconnect")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published ledger change",
		applog.FieldAccount, msg.Account,
		applog.FieldOperation, msg.Op,
		applog.FieldRows, msg.Rows,
		"exchange", c.exchangeName)
	return nil
}

// Handler processes one decoded message. Returning an error requeues it.
type Handler func(ctx context.Context, msg *LedgerChangedMessage) error

// Consume delivers messages to handler until ctx is cancelled, reconnecting
// with capped exponential backoff when the broker connection drops.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		started, err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		if started {
			attempt = 0
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "AMQP connection lost, reconnecting",
			applog.FieldError, err,
			"attempt", attempt,
			"backoff", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.connect(); err != nil {
			c.log().WarnContext(ctx, "Reconnect failed", applog.FieldError, err)
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler) (bool, error) {
	channel := c.currentChannel()
	if channel == nil {
		return false, amqp091.ErrClosed
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return false, fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming ledger changes", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return true, errDeliveriesClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks on success, requeues on handler error and drops
// messages that cannot be decoded.
func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler Handler) {
	msg, err := LedgerChangedMessageFromJSON(delivery.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Dropping undecodable message", applog.FieldError, err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle ledger change",
			applog.FieldError, err,
			applog.FieldAccount, msg.Account,
			applog.FieldOperation, msg.Op)
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Ack(false)
	c.log().InfoContext(ctx, "Processed ledger change",
		applog.FieldAccount, msg.Account,
		applog.FieldOperation, msg.Op)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		if time.Since(c.lastFailureAt()) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.setLastFailure(time.Now())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) setLastFailure(t time.Time) {
	atomic.StoreInt64(&c.lastFailure, t.UnixNano())
}

func (c *Client) lastFailureAt() time.Time {
	return time.Unix(0, atomic.LoadInt64(&c.lastFailure))
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errDeliveriesClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}
