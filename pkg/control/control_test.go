package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airctrl-protocol/airctrl-go/pkg/coordinator"
	"github.com/airctrl-protocol/airctrl-go/pkg/model"
	"github.com/airctrl-protocol/airctrl-go/pkg/status"
)

// fakeDevice is a scripted coordinator.Device that records every
// control write.
type fakeDevice struct {
	mu       sync.Mutex
	status   status.DeviceStatus
	writes   []map[string]any
	writeErr error
}

func (f *fakeDevice) GetStatus(ctx context.Context) (status.DeviceStatus, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.Clone(), time.Hour, nil
}

func (f *fakeDevice) ObserveStatus(ctx context.Context) (<-chan status.DeviceStatus, error) {
	ch := make(chan status.DeviceStatus)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeDevice) SetControlValue(ctx context.Context, key string, value any) error {
	return f.SetControlValues(ctx, map[string]any{key: value})
}

func (f *fakeDevice) SetControlValues(ctx context.Context, values map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, values)
	return nil
}

func (f *fakeDevice) Close() error { return nil }

func (f *fakeDevice) lastWrite(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.writes)
	return f.writes[len(f.writes)-1]
}

func newTestCoordinator(t *testing.T, dev *fakeDevice) *coordinator.Coordinator {
	t.Helper()
	co := coordinator.New(dev, "test-device.local", coordinator.Config{
		Timeout: time.Hour,
	})
	require.NoError(t, co.FirstRefresh(context.Background()))
	t.Cleanup(func() { _ = co.Shutdown() })
	return co
}

func TestNewHumidifierUnsupportedModel(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{"type": "AC2889"}}
	co := newTestCoordinator(t, dev)

	_, err := NewHumidifier(co, "AC2889", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = NewHumidifier(co, "XX9999", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestHumidifierReaders(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{
		"pwr":   "1",
		"func":  "PH",
		"rhset": float64(60),
		"rh":    float64(45),
	}}
	co := newTestCoordinator(t, dev)

	h, err := NewHumidifier(co, "AC2729", nil, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.IsOn())
	assert.Equal(t, ActionHumidifying, h.Action())

	target, ok := h.TargetHumidity()
	require.True(t, ok)
	assert.Equal(t, 60, target)

	current, ok := h.CurrentHumidity()
	require.True(t, ok)
	assert.Equal(t, 45, current)

	assert.Equal(t, 40, h.MinHumidity())
	assert.Equal(t, 70, h.MaxHumidity())
}

func TestHumidifierActionStates(t *testing.T) {
	cases := []struct {
		name   string
		status status.DeviceStatus
		want   Action
	}{
		{"powered off", status.DeviceStatus{"pwr": "0", "func": "PH"}, ActionOff},
		{"purify only", status.DeviceStatus{"pwr": "1", "func": "P"}, ActionIdle},
		{"target reached", status.DeviceStatus{"pwr": "1", "func": "PH", "rhset": float64(50), "rh": float64(55)}, ActionIdle},
		{"below target", status.DeviceStatus{"pwr": "1", "func": "PH", "rhset": float64(50), "rh": float64(40)}, ActionHumidifying},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := &fakeDevice{status: tc.status}
			co := newTestCoordinator(t, dev)
			h, err := NewHumidifier(co, "AC3829", nil, nil)
			require.NoError(t, err)
			defer h.Close()

			assert.Equal(t, tc.want, h.Action())
		})
	}
}

func TestSetTargetHumidity(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{"pwr": "1", "func": "PH", "rhset": float64(50)}}
	co := newTestCoordinator(t, dev)
	h, err := NewHumidifier(co, "AC2729", nil, nil)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.SetTargetHumidity(context.Background(), 60))
	assert.Equal(t, map[string]any{"rhset": 60}, dev.lastWrite(t))

	// The snapshot is patched optimistically.
	target, ok := h.TargetHumidity()
	require.True(t, ok)
	assert.Equal(t, 60, target)
}

func TestSetTargetHumidityOutOfRange(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{"pwr": "1"}}
	co := newTestCoordinator(t, dev)
	h, err := NewHumidifier(co, "AC2729", nil, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.ErrorIs(t, h.SetTargetHumidity(context.Background(), 30), ErrOutOfRange)
	assert.ErrorIs(t, h.SetTargetHumidity(context.Background(), 75), ErrOutOfRange)

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Empty(t, dev.writes)
}

func TestHumidifierTurnOnOff(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{"pwr": "0", "func": "P"}}
	co := newTestCoordinator(t, dev)
	h, err := NewHumidifier(co, "AMF870", nil, nil)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.TurnOn(context.Background()))
	assert.Equal(t, map[string]any{"pwr": "1", "func": "PH"}, dev.lastWrite(t))
	assert.True(t, h.IsOn())

	require.NoError(t, h.TurnOff(context.Background()))
	assert.Equal(t, map[string]any{"func": "P"}, dev.lastWrite(t))
	assert.False(t, h.IsOn())
}

func TestHumidifierWriteFailureLeavesSnapshot(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{"pwr": "1", "func": "PH", "rhset": float64(50)}}
	co := newTestCoordinator(t, dev)
	h, err := NewHumidifier(co, "AC2729", nil, nil)
	require.NoError(t, err)
	defer h.Close()

	dev.mu.Lock()
	dev.writeErr = errors.New("device unreachable")
	dev.mu.Unlock()

	require.Error(t, h.SetTargetHumidity(context.Background(), 60))

	target, ok := h.TargetHumidity()
	require.True(t, ok)
	assert.Equal(t, 50, target)
}

func TestFilterResetButtons(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{
		"fltsts0":   float64(120),
		"flttotal0": float64(360),
		"fltsts1":   float64(2000),
		"flttotal1": float64(4800),
		"fltsts2":   float64(1000),
		"flttotal2": float64(2400),
	}}
	co := newTestCoordinator(t, dev)

	buttons, err := NewFilterResetButtons(co, "AC2889", nil, nil)
	require.NoError(t, err)
	defer func() {
		for _, b := range buttons {
			b.Close()
		}
	}()

	// AC2889 has no wick; only the keys present in the snapshot count.
	require.Len(t, buttons, 3)

	var pre *FilterResetButton
	for _, b := range buttons {
		if b.Filter() == model.FilterPreFilter {
			pre = b
		}
	}
	require.NotNil(t, pre)

	remaining, ok := pre.Remaining()
	require.True(t, ok)
	assert.Equal(t, 120, remaining)

	require.NoError(t, pre.Press(context.Background()))
	assert.Equal(t, map[string]any{"fltsts0": 360}, dev.lastWrite(t))

	remaining, ok = pre.Remaining()
	require.True(t, ok)
	assert.Equal(t, 360, remaining)
}

func TestFilterResetButtonsUnknownModel(t *testing.T) {
	dev := &fakeDevice{status: status.DeviceStatus{}}
	co := newTestCoordinator(t, dev)

	_, err := NewFilterResetButtons(co, "XX9999", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
