package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultHeartbeat   = 10 * time.Second
)

type Options struct {
	URL             string
	Exchange        string
	Queue           string
	DeclareTopology bool
	DialTimeout     time.Duration
}

// Client owns the AMQP connection and the single channel the bridge publishes
// on. It is created once at startup and closed on shutdown.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial opens the connection and channel and, when asked, declares the topology.
// ctx bounds the TCP dial; the AMQP handshake is bounded by DialTimeout.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}

	conn, err := amqp.DialConfig(opts.URL, amqp.Config{
		Dial:      contextDial(ctx, opts.DialTimeout),
		Heartbeat: defaultHeartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open broker channel: %w", err)
	}

	if opts.DeclareTopology {
		if err := DeclareTopology(channel, opts.Exchange, opts.Queue); err != nil {
			channel.Close()
			conn.Close()
			return nil, err
		}
	}

	go watchClose(conn.NotifyClose(make(chan *amqp.Error, 1)))

	return &Client{conn: conn, channel: channel}, nil
}

// contextDial mirrors amqp.DefaultDial but honours ctx. The deadline covers
// the handshake and is cleared by amqp once the connection is open.
func contextDial(ctx context.Context, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	return func(network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func watchClose(closed <-chan *amqp.Error) {
	if err, ok := <-closed; ok && err != nil {
		log.Printf("Broker connection closed: %v", err)
	}
}

// Channel returns the channel publishes go through.
func (c *Client) Channel() *amqp.Channel {
	return c.channel
}

// Connected reports whether both the connection and the channel are open.
func (c *Client) Connected() bool {
	return !c.conn.IsClosed() && !c.channel.IsClosed()
}

func (c *Client) Close() error {
	var errs []error
	if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close broker channel: %w", err))
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close broker connection: %w", err))
	}
	return errors.Join(errs...)
}
