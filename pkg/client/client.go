// Package client implements the CoAP device client for Philips air
// purifiers and humidifiers. It covers the four capabilities the
// connection layer needs: a one-shot status fetch, a long-lived
// observation stream, control writes and close.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/udp/message/pool"
	"github.com/plgd-dev/go-coap/v2/udp"
	udpclient "github.com/plgd-dev/go-coap/v2/udp/client"

	"github.com/airctrl-protocol/airctrl-go/pkg/eventlog"
	"github.com/airctrl-protocol/airctrl-go/pkg/status"
)

// Client errors.
var (
	// ErrClosed is returned for operations on a closed client.
	ErrClosed = errors.New("client closed")

	// ErrCommandRejected is returned when the device answers a control
	// write with a failure status.
	ErrCommandRejected = errors.New("device rejected control command")
)

// Device resource paths.
const (
	// StatusPath is the status resource, also the observed resource.
	StatusPath = "/sys/dev/status"

	// ControlPath is the control resource for writes.
	ControlPath = "/sys/dev/control"
)

const (
	// DefaultPort is the CoAP UDP port the devices listen on.
	DefaultPort = 5683

	// DefaultPollingInterval is assumed when the device does not report
	// a Max-Age on the status resource.
	DefaultPollingInterval = 60 * time.Second
)

// Config configures a Client.
type Config struct {
	// Port is the device CoAP port. Zero means DefaultPort.
	Port int

	// DialTimeout bounds connection setup. Zero means 10 seconds.
	DialTimeout time.Duration

	// Logger receives operational log output. Nil disables it.
	Logger *slog.Logger

	// EventLogger receives connection events. Nil disables capture.
	EventLogger eventlog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Port:        DefaultPort,
		DialTimeout: 10 * time.Second,
	}
}

// Client is a connection to a single device. A Client is bound to one
// UDP session; after connection loss it is closed and replaced rather
// than repaired.
type Client struct {
	id     string
	host   string
	addr   string
	conn   *udpclient.ClientConn
	logger *slog.Logger
	events eventlog.Logger

	mu     sync.Mutex
	closed bool
}

// Dial opens a connection to the device at host.
// The context bounds connection setup only; a cancelled Dial does not
// leak a half-open connection.
func Dial(ctx context.Context, host string, cfg Config) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = eventlog.NoopLogger{}
	}

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	type dialResult struct {
		conn *udpclient.ClientConn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := udp.Dial(addr)
		ch <- dialResult{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		// Reap the connection if the dial completes after cancellation.
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("dial %s: %w", addr, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, r.err)
		}

		c := &Client{
			id:     uuid.NewString(),
			host:   host,
			addr:   addr,
			conn:   r.conn,
			logger: cfg.Logger,
			events: cfg.EventLogger,
		}
		if c.logger != nil {
			c.logger.Debug("connected", "host", host, "conn_id", c.id)
		}
		return c, nil
	}
}

// ID returns the connection ID (UUID) used in event logs.
func (c *Client) ID() string {
	return c.id
}

// Host returns the device host this client was dialed against.
func (c *Client) Host() string {
	return c.host
}

// GetStatus fetches the current status record once. The second return
// value is the device-reported minimum polling interval (from the
// Max-Age option), falling back to DefaultPollingInterval.
func (c *Client) GetStatus(ctx context.Context) (status.DeviceStatus, time.Duration, error) {
	start := time.Now()

	resp, err := c.conn.Get(ctx, StatusPath)
	if err != nil {
		c.logError("fetch status", err)
		return nil, 0, fmt.Errorf("fetch status from %s: %w", c.addr, err)
	}
	if resp.Code() != codes.Content {
		err := fmt.Errorf("fetch status from %s: unexpected response code %v", c.addr, resp.Code())
		c.logError("fetch status", err)
		return nil, 0, err
	}

	body, err := resp.ReadBody()
	if err != nil {
		return nil, 0, fmt.Errorf("fetch status from %s: read body: %w", c.addr, err)
	}
	st, err := status.Decode(body)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch status from %s: %w", c.addr, err)
	}

	c.events.Log(eventlog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    eventlog.DirectionIn,
		Category:     eventlog.CategoryExchange,
		RemoteAddr:   c.addr,
		Exchange: &eventlog.ExchangeEvent{
			Path:        StatusPath,
			Code:        resp.Code().String(),
			PayloadSize: len(body),
			RoundTrip:   time.Since(start),
		},
	})

	return st, c.pollingInterval(resp), nil
}

// pollingInterval extracts the device-reported refresh interval from
// the Max-Age option.
func (c *Client) pollingInterval(resp *pool.Message) time.Duration {
	maxAge, err := resp.GetOptionUint32(message.MaxAge)
	if err != nil || maxAge == 0 {
		return DefaultPollingInterval
	}
	return time.Duration(maxAge) * time.Second
}

// ObserveStatus registers an observation on the status resource and
// returns a channel of decoded updates. The channel is closed when ctx
// is cancelled or the underlying connection dies; either way the stream
// simply ends, it never reports an error. Updates that fail to decode
// are skipped.
func (c *Client) ObserveStatus(ctx context.Context) (<-chan status.DeviceStatus, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	raw := make(chan status.DeviceStatus)

	obs, err := c.conn.Observe(ctx, StatusPath, func(msg *pool.Message) {
		body, err := msg.ReadBody()
		if err != nil {
			c.logError("observe status", err)
			return
		}
		st, err := status.Decode(body)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug("skipping undecodable status update", "host", c.host, "error", err)
			}
			c.logError("observe status", err)
			return
		}

		c.events.Log(eventlog.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.id,
			Direction:    eventlog.DirectionIn,
			Category:     eventlog.CategoryUpdate,
			RemoteAddr:   c.addr,
			Update: &eventlog.UpdateEvent{
				Path:        StatusPath,
				PayloadSize: len(body),
				Attributes:  len(st),
			},
		})

		select {
		case raw <- st:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("observe status on %s: %w", c.addr, err)
	}

	updates := make(chan status.DeviceStatus)
	go func() {
		defer close(updates)
		defer func() {
			// Deregistration is best effort; the peer may be gone.
			cancelCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = obs.Cancel(cancelCtx)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.conn.Context().Done():
				// Session died. The stream ends without error; liveness
				// detection is the caller's concern.
				return
			case st := <-raw:
				select {
				case updates <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

// SetControlValue writes a single control attribute to the device.
func (c *Client) SetControlValue(ctx context.Context, key string, value any) error {
	return c.SetControlValues(ctx, map[string]any{key: value})
}

// SetControlValues writes a set of control attributes in one request.
// A failure reply from the device is returned as ErrCommandRejected.
func (c *Client) SetControlValues(ctx context.Context, values map[string]any) error {
	body, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode control values: %w", err)
	}

	start := time.Now()
	resp, err := c.conn.Post(ctx, ControlPath, message.AppJSON, bytes.NewReader(body))
	if err != nil {
		c.logError("set control values", err)
		return fmt.Errorf("set control values on %s: %w", c.addr, err)
	}

	c.events.Log(eventlog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    eventlog.DirectionOut,
		Category:     eventlog.CategoryExchange,
		RemoteAddr:   c.addr,
		Exchange: &eventlog.ExchangeEvent{
			Path:        ControlPath,
			Code:        resp.Code().String(),
			PayloadSize: len(body),
			RoundTrip:   time.Since(start),
		},
	})

	if resp.Code() != codes.Changed && resp.Code() != codes.Content {
		return fmt.Errorf("%w: response code %v", ErrCommandRejected, resp.Code())
	}
	return checkControlReply(resp)
}

// checkControlReply inspects the device's JSON acknowledgement. Devices
// answer control writes with {"status":"success"} or {"status":"failed"};
// an empty body counts as success.
func checkControlReply(resp *pool.Message) error {
	body, err := resp.ReadBody()
	if err != nil || len(body) == 0 {
		return nil
	}
	var reply struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil
	}
	if reply.Status != "" && reply.Status != "success" {
		return fmt.Errorf("%w: status %q", ErrCommandRejected, reply.Status)
	}
	return nil
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("closing connection", "host", c.host, "conn_id", c.id)
	}
	return c.conn.Close()
}

func (c *Client) logError(op string, err error) {
	c.events.Log(eventlog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Category:     eventlog.CategoryError,
		RemoteAddr:   c.addr,
		Error: &eventlog.ErrorEventData{
			Message: err.Error(),
			Context: op,
		},
	})
}
