package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/airctrl-protocol/airctrl-go/pkg/coordinator"
	"github.com/airctrl-protocol/airctrl-go/pkg/model"
)

// Action describes what the humidifier is currently doing.
type Action string

const (
	// ActionOff means the device is powered off.
	ActionOff Action = "off"

	// ActionIdle means the device is on but not humidifying.
	ActionIdle Action = "idle"

	// ActionHumidifying means the device is actively humidifying.
	ActionHumidifying Action = "humidifying"
)

// Humidifier is the humidification surface of a 2-in-1 device.
type Humidifier struct {
	co     *coordinator.Coordinator
	spec   model.HumidifierSpec
	logger *slog.Logger

	unsubscribe func()
}

// NewHumidifier builds the humidifier surface for a model. Fails for
// models without humidification. onUpdate, if not nil, is invoked on
// every status update.
func NewHumidifier(co *coordinator.Coordinator, modelID string, onUpdate func(), logger *slog.Logger) (*Humidifier, error) {
	caps, ok := model.Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, modelID)
	}
	if caps.Humidifier == nil {
		return nil, fmt.Errorf("%w: %s cannot humidify", ErrUnsupportedModel, modelID)
	}

	h := &Humidifier{
		co:     co,
		spec:   *caps.Humidifier,
		logger: logger,
	}
	if onUpdate != nil {
		h.unsubscribe = co.AddListener(onUpdate)
	}
	return h, nil
}

// IsOn reports whether the device is powered on and set to humidify.
func (h *Humidifier) IsOn() bool {
	st := h.co.Status()
	pwr, _ := st.String(h.spec.PowerKey)
	fn, _ := st.String(h.spec.FunctionKey)
	return pwr == "1" && fn == h.spec.HumidifyingValue
}

// Action returns what the device is doing right now. Humidifying means
// on, set to humidify, and below the target humidity.
func (h *Humidifier) Action() Action {
	st := h.co.Status()
	if pwr, _ := st.String(h.spec.PowerKey); pwr != "1" {
		return ActionOff
	}
	if fn, _ := st.String(h.spec.FunctionKey); fn != h.spec.HumidifyingValue {
		return ActionIdle
	}
	current, okCur := st.Int(h.spec.HumidityKey)
	target, okTgt := st.Int(h.spec.TargetKey)
	if okCur && okTgt && current >= target {
		return ActionIdle
	}
	return ActionHumidifying
}

// TargetHumidity returns the setpoint from the latest snapshot.
func (h *Humidifier) TargetHumidity() (int, bool) {
	return h.co.Status().Int(h.spec.TargetKey)
}

// CurrentHumidity returns the measured humidity from the latest snapshot.
func (h *Humidifier) CurrentHumidity() (int, bool) {
	return h.co.Status().Int(h.spec.HumidityKey)
}

// MinHumidity returns the lowest supported setpoint.
func (h *Humidifier) MinHumidity() int {
	return h.spec.MinHumidity
}

// MaxHumidity returns the highest supported setpoint.
func (h *Humidifier) MaxHumidity() int {
	return h.spec.MaxHumidity
}

// SetTargetHumidity writes the humidity setpoint.
func (h *Humidifier) SetTargetHumidity(ctx context.Context, percent int) error {
	if percent < h.spec.MinHumidity || percent > h.spec.MaxHumidity {
		return fmt.Errorf("%w: %d%% (supported %d-%d%%)", ErrOutOfRange, percent, h.spec.MinHumidity, h.spec.MaxHumidity)
	}

	if err := h.co.Client().SetControlValue(ctx, h.spec.TargetKey, percent); err != nil {
		return fmt.Errorf("set target humidity: %w", err)
	}

	h.co.ApplyLocal(map[string]any{h.spec.TargetKey: percent})
	if h.logger != nil {
		h.logger.Debug("target humidity set", "percent", percent)
	}
	return nil
}

// TurnOn powers the device on in purify+humidify mode.
func (h *Humidifier) TurnOn(ctx context.Context) error {
	values := map[string]any{
		h.spec.PowerKey:    "1",
		h.spec.FunctionKey: h.spec.HumidifyingValue,
	}
	if err := h.co.Client().SetControlValues(ctx, values); err != nil {
		return fmt.Errorf("turn humidifier on: %w", err)
	}
	h.co.ApplyLocal(values)
	return nil
}

// TurnOff switches humidification off, leaving purification running.
func (h *Humidifier) TurnOff(ctx context.Context) error {
	values := map[string]any{
		h.spec.FunctionKey: h.spec.PurifyingValue,
	}
	if err := h.co.Client().SetControlValues(ctx, values); err != nil {
		return fmt.Errorf("turn humidifier off: %w", err)
	}
	h.co.ApplyLocal(values)
	return nil
}

// Close drops the humidifier's update subscription, if any.
func (h *Humidifier) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}
