// Package coordinator maintains the connection to a single device: it
// performs the initial status fetch, keeps a continuously refreshed
// status snapshot via the observation stream, fans updates out to
// registered listeners and transparently rebuilds the connection when
// updates stop arriving.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airctrl-protocol/airctrl-go/pkg/client"
	"github.com/airctrl-protocol/airctrl-go/pkg/eventlog"
	"github.com/airctrl-protocol/airctrl-go/pkg/status"
	"github.com/airctrl-protocol/airctrl-go/pkg/watchdog"
)

// ErrNotReady is returned when the initial refresh fails. The
// coordinator is unusable; the caller owns any retry policy.
var ErrNotReady = errors.New("connection not ready")

const (
	// MissedPackageCount is how many consecutive status pushes may go
	// missing before the connection is presumed dead. Two missed pushes
	// are tolerated, the third triggers recovery.
	MissedPackageCount = 3

	// DefaultTimeout is the assumed push interval until the device
	// reports its own during the first refresh.
	DefaultTimeout = 60 * time.Second
)

// Device is the client capability the coordinator consumes. A Device
// is bound to one connection; on reconnect it is closed and replaced,
// never repaired.
type Device interface {
	// GetStatus fetches the current status once, along with the
	// device-reported minimum polling interval.
	GetStatus(ctx context.Context) (status.DeviceStatus, time.Duration, error)

	// ObserveStatus returns a stream of decoded status updates. The
	// channel closes when ctx is cancelled or the connection dies; the
	// stream never reports an error.
	ObserveStatus(ctx context.Context) (<-chan status.DeviceStatus, error)

	// SetControlValue writes a single control attribute.
	SetControlValue(ctx context.Context, key string, value any) error

	// SetControlValues writes several control attributes in one request.
	SetControlValues(ctx context.Context, values map[string]any) error

	// Close tears down the connection. Safe to call more than once.
	Close() error
}

// DialFunc opens a fresh Device connection to host. Used on reconnect.
type DialFunc func(ctx context.Context, host string) (Device, error)

// Config configures a Coordinator.
type Config struct {
	// Dial opens replacement connections on reconnect. Nil means the
	// default CoAP client with this Logger and EventLogger.
	Dial DialFunc

	// Timeout is the assumed push interval until the first refresh
	// reports the real one. Zero means DefaultTimeout.
	Timeout time.Duration

	// MissedPackages overrides MissedPackageCount. Zero means default.
	MissedPackages int

	// Logger receives operational log output. Nil disables it.
	Logger *slog.Logger

	// EventLogger receives connection events. Nil disables capture.
	EventLogger eventlog.Logger
}

// listener is a registration node. Identity of the node, not of the
// callback, distinguishes duplicate registrations of the same function.
type listener struct {
	fn func()
}

// Coordinator owns one Device connection and the latest status
// snapshot. All shared state is guarded by mu; the observation loop and
// reconnect attempts run as background goroutines with at most one of
// each live at any time.
type Coordinator struct {
	id   string
	host string

	dial   DialFunc
	missed int
	logger *slog.Logger
	events eventlog.Logger
	timer  *watchdog.Timer

	mu              sync.Mutex
	device          Device
	status          status.DeviceStatus
	listeners       []*listener
	observeCancel   context.CancelFunc
	reconnectCancel context.CancelFunc
	closed          bool
}

// New creates a coordinator around an already-dialed device connection.
// The liveness watchdog starts immediately: a connection that never
// produces an update still gets repaired.
func New(device Device, host string, cfg Config) *Coordinator {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MissedPackages == 0 {
		cfg.MissedPackages = MissedPackageCount
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = eventlog.NoopLogger{}
	}

	c := &Coordinator{
		id:     uuid.NewString(),
		host:   host,
		device: device,
		missed: cfg.MissedPackages,
		logger: cfg.Logger,
		events: cfg.EventLogger,
	}

	c.dial = cfg.Dial
	if c.dial == nil {
		clientCfg := client.DefaultConfig()
		clientCfg.Logger = cfg.Logger
		clientCfg.EventLogger = cfg.EventLogger
		c.dial = func(ctx context.Context, host string) (Device, error) {
			return client.Dial(ctx, host, clientCfg)
		}
	}

	if c.logger != nil {
		c.logger.Debug("creating liveness watchdog", "host", host, "timeout", cfg.Timeout*time.Duration(cfg.MissedPackages))
	}
	c.timer = watchdog.New(cfg.Timeout*time.Duration(cfg.MissedPackages), c.Reconnect, true)
	c.timer.SetAutoRestart(true)

	return c
}

// Host returns the device host this coordinator is bound to.
func (c *Coordinator) Host() string {
	return c.host
}

// Status returns the latest status snapshot, or nil before the first
// successful refresh. The snapshot is replaced wholesale on every
// update; callers must not mutate it.
func (c *Coordinator) Status() status.DeviceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Client returns the current device connection for issuing control
// commands. The handle is swapped during reconnect, so callers must
// re-read it per use instead of caching it.
func (c *Coordinator) Client() Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

// FirstRefresh fetches the status once and configures the liveness
// window from the device-reported polling interval. On failure the
// coordinator is not usable and ErrNotReady is returned; retrying is
// the caller's responsibility.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()

	st, interval, err := device.GetStatus(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("first refresh failed", "host", c.host, "error", err)
		}
		return fmt.Errorf("%w: first refresh for %s: %w", ErrNotReady, c.host, err)
	}

	c.mu.Lock()
	c.status = st
	c.mu.Unlock()

	c.timer.SetTimeout(interval * time.Duration(c.missed))
	if c.logger != nil {
		c.logger.Debug("first refresh finished", "host", c.host, "interval", interval)
	}
	return nil
}

// AddListener registers a callback invoked on every future status
// update. The first listener lazily starts the observation loop; no
// background observation runs with zero listeners. The returned
// function unsubscribes; calling it more than once is harmless.
func (c *Coordinator) AddListener(fn func()) func() {
	l := &listener{fn: fn}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	startObserving := len(c.listeners) == 0
	c.listeners = append(c.listeners, l)
	if startObserving {
		c.startObservingLocked()
	}
	c.mu.Unlock()

	return func() {
		c.removeListener(l)
	}
}

// removeListener drops a registration. Removing one that is not
// registered is a no-op. When the last listener goes, the observation
// loop is stopped.
func (c *Coordinator) removeListener(l *listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, reg := range c.listeners {
		if reg == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}

	if len(c.listeners) == 0 && c.observeCancel != nil {
		c.observeCancel()
		c.observeCancel = nil
	}
}

// startObservingLocked replaces any live observation loop with a fresh
// one against the current device. Caller holds c.mu.
func (c *Coordinator) startObservingLocked() {
	if c.observeCancel != nil {
		c.observeCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.observeCancel = cancel

	go c.observe(ctx, c.device)

	// Fresh subscription, fresh liveness grace period.
	c.timer.Reset()
}

// observe is the observation loop. It ends silently when the stream
// terminates; the watchdog notices the silence and recovers.
func (c *Coordinator) observe(ctx context.Context, device Device) {
	updates, err := device.ObserveStatus(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			if c.logger != nil {
				c.logger.Error("starting observation failed", "host", c.host, "error", err)
			}
		}
		return
	}

	for st := range updates {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		c.status = st
		registered := make([]*listener, len(c.listeners))
		copy(registered, c.listeners)
		c.mu.Unlock()

		// A received update is proof of liveness.
		c.timer.Reset()

		for _, l := range registered {
			c.notify(l)
		}
	}
}

// notify invokes one listener, isolating panics so a faulty listener
// cannot break delivery to the rest.
func (c *Coordinator) notify(l *listener) {
	defer func() {
		if r := recover(); r != nil {
			if c.logger != nil {
				c.logger.Error("listener panicked", "host", c.host, "panic", r)
			}
		}
	}()
	l.fn()
}

// Reconnect tears down the current connection and builds a new one in
// the background. A reconnect already in flight is presumed stuck and
// superseded; at most one reconnect task is ever live. Failures are
// logged and swallowed - the watchdog keeps running and will trigger
// the next attempt.
func (c *Coordinator) Reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	old := c.stateLocked()
	if c.reconnectCancel != nil {
		c.reconnectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.reconnectCancel = cancel
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("reconnecting", "host", c.host)
	}
	c.stateChange(old, "RECONNECTING", "liveness timeout")

	go c.reconnect(ctx)
}

func (c *Coordinator) reconnect(ctx context.Context) {
	c.mu.Lock()
	old := c.device
	c.mu.Unlock()

	// Best effort: the old connection may already be unreachable.
	if old != nil {
		_ = old.Close()
	}

	device, err := c.dial(ctx, c.host)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Superseded by a newer attempt or shut down. Expected
			// flow, not a fault.
			return
		}
		if c.logger != nil {
			c.logger.Error("reconnect failed", "host", c.host, "error", err)
		}
		c.events.Log(eventlog.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.id,
			Category:     eventlog.CategoryError,
			Error: &eventlog.ErrorEventData{
				Message: err.Error(),
				Context: "reconnect",
			},
		})
		return
	}

	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		_ = device.Close()
		return
	}
	c.device = device
	// This attempt is done; it no longer counts as an in-flight
	// reconnect.
	if c.reconnectCancel != nil {
		c.reconnectCancel()
		c.reconnectCancel = nil
	}
	if len(c.listeners) > 0 {
		c.startObservingLocked()
	}
	next := "IDLE"
	if c.observeCancel != nil {
		next = "OBSERVING"
	}
	c.mu.Unlock()

	c.stateChange("RECONNECTING", next, "reconnected")
}

// ApplyLocal patches the cached snapshot with values just written to
// the device and notifies listeners, without waiting for the next
// observed update. No-op before the first refresh.
func (c *Coordinator) ApplyLocal(patch map[string]any) {
	c.mu.Lock()
	if c.closed || c.status == nil {
		c.mu.Unlock()
		return
	}
	st := c.status.Clone()
	for k, v := range patch {
		st[k] = v
	}
	c.status = st
	registered := make([]*listener, len(c.listeners))
	copy(registered, c.listeners)
	c.mu.Unlock()

	for _, l := range registered {
		c.notify(l)
	}
}

// Shutdown cancels the watchdog and all background tasks and closes
// the connection. Safe to call more than once and on a coordinator
// whose first refresh never succeeded.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	old := c.stateLocked()
	if c.reconnectCancel != nil {
		c.reconnectCancel()
		c.reconnectCancel = nil
	}
	if c.observeCancel != nil {
		c.observeCancel()
		c.observeCancel = nil
	}
	device := c.device
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("shutting down", "host", c.host)
	}
	c.timer.Cancel()
	c.stateChange(old, "SHUTDOWN", "shutdown requested")

	if device != nil {
		return device.Close()
	}
	return nil
}

// stateLocked labels the coordinator's current connection state for
// event capture. Caller holds c.mu.
func (c *Coordinator) stateLocked() string {
	switch {
	case c.reconnectCancel != nil:
		return "RECONNECTING"
	case c.observeCancel != nil:
		return "OBSERVING"
	default:
		return "IDLE"
	}
}

func (c *Coordinator) stateChange(old, next, reason string) {
	c.events.Log(eventlog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Category:     eventlog.CategoryState,
		StateChange: &eventlog.StateChangeEvent{
			OldState: old,
			NewState: next,
			Reason:   reason,
		},
	})
}
