package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/airctrl-protocol/airctrl-go/pkg/coordinator"
	"github.com/airctrl-protocol/airctrl-go/pkg/model"
)

// FilterResetButton resets one filter's remaining lifetime back to its
// full capacity, the way the physical button on the device does after
// a filter change.
type FilterResetButton struct {
	co     *coordinator.Coordinator
	filter model.FilterType
	spec   model.FilterSpec
	logger *slog.Logger

	unsubscribe func()
}

// NewFilterResetButtons builds one button per filter slot the model
// actually has and the device currently reports. onUpdate, if not nil,
// is registered once per button and invoked on every status update.
func NewFilterResetButtons(co *coordinator.Coordinator, modelID string, onUpdate func(), logger *slog.Logger) ([]*FilterResetButton, error) {
	caps, ok := model.Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, modelID)
	}

	st := co.Status()
	if st == nil {
		return nil, ErrNoStatus
	}

	var buttons []*FilterResetButton
	for _, ft := range []model.FilterType{model.FilterPreFilter, model.FilterHEPA, model.FilterActiveCarbon, model.FilterWick} {
		spec := model.Filters[ft]
		if !caps.FilterAvailable(ft) || !st.Has(spec.StatusKey) {
			continue
		}
		b := &FilterResetButton{
			co:     co,
			filter: ft,
			spec:   spec,
			logger: logger,
		}
		if onUpdate != nil {
			b.unsubscribe = co.AddListener(onUpdate)
		}
		buttons = append(buttons, b)
	}
	return buttons, nil
}

// Filter returns the filter slot this button resets.
func (b *FilterResetButton) Filter() model.FilterType {
	return b.filter
}

// Label returns the human-readable filter name.
func (b *FilterResetButton) Label() string {
	return b.spec.Label
}

// Remaining returns the filter's remaining lifetime from the latest
// snapshot.
func (b *FilterResetButton) Remaining() (int, bool) {
	return b.co.Status().Int(b.spec.StatusKey)
}

// Press resets the filter: the full capacity from the snapshot is
// written back to the filter's lifetime attribute.
func (b *FilterResetButton) Press(ctx context.Context) error {
	st := b.co.Status()
	if st == nil {
		return ErrNoStatus
	}
	total, ok := st.Int(b.spec.TotalKey)
	if !ok {
		return fmt.Errorf("reset %s: attribute %q missing from status", b.spec.Label, b.spec.TotalKey)
	}

	// Re-read the client handle per use: it is swapped on reconnect.
	if err := b.co.Client().SetControlValue(ctx, b.spec.StatusKey, total); err != nil {
		if b.logger != nil {
			b.logger.Error("filter reset failed", "filter", b.filter, "error", err)
		}
		return fmt.Errorf("reset %s: %w", b.spec.Label, err)
	}

	b.co.ApplyLocal(map[string]any{b.spec.StatusKey: total})
	if b.logger != nil {
		b.logger.Info("filter reset", "filter", b.filter, "total", total)
	}
	return nil
}

// Close drops the button's update subscription, if any.
func (b *FilterResetButton) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}
