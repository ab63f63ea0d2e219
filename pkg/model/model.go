// Package model holds the per-model capability tables. The supported
// feature set of every known device model is an explicit table built at
// configuration time; nothing is discovered by reflection at runtime.
package model

// Filter status keys as reported by the devices. The value under a
// status key is the remaining filter lifetime; the matching total key
// holds the full capacity written back on a filter reset.
type FilterType string

const (
	// FilterPreFilter is the washable pre-filter.
	FilterPreFilter FilterType = "fltsts0"

	// FilterHEPA is the HEPA filter.
	FilterHEPA FilterType = "fltsts1"

	// FilterActiveCarbon is the active carbon filter.
	FilterActiveCarbon FilterType = "fltsts2"

	// FilterWick is the humidification wick.
	FilterWick FilterType = "wicksts"
)

// FilterSpec describes one filter slot.
type FilterSpec struct {
	// Label is the human-readable filter name.
	Label string

	// StatusKey is the attribute holding the remaining lifetime.
	StatusKey string

	// TotalKey is the attribute holding the full capacity.
	TotalKey string
}

// Filters maps every known filter slot to its spec.
var Filters = map[FilterType]FilterSpec{
	FilterPreFilter: {
		Label:     "Pre-filter",
		StatusKey: string(FilterPreFilter),
		TotalKey:  "flttotal0",
	},
	FilterHEPA: {
		Label:     "HEPA Filter",
		StatusKey: string(FilterHEPA),
		TotalKey:  "flttotal1",
	},
	FilterActiveCarbon: {
		Label:     "Active Carbon Filter",
		StatusKey: string(FilterActiveCarbon),
		TotalKey:  "flttotal2",
	},
	FilterWick: {
		Label:     "Humidification Wick",
		StatusKey: string(FilterWick),
		TotalKey:  "wicktotal",
	},
}

// HumidifierSpec describes the humidification control surface of a
// 2-in-1 device.
type HumidifierSpec struct {
	// PowerKey switches the device on and off ("1"/"0").
	PowerKey string

	// FunctionKey selects the operating function.
	FunctionKey string

	// HumidifyingValue is the FunctionKey value for purify+humidify.
	HumidifyingValue string

	// PurifyingValue is the FunctionKey value for purify only.
	PurifyingValue string

	// TargetKey is the target humidity setpoint attribute.
	TargetKey string

	// HumidityKey is the measured humidity attribute.
	HumidityKey string

	// MinHumidity and MaxHumidity bound the setpoint in percent.
	MinHumidity int
	MaxHumidity int
}

// standardHumidifier is shared by all current 2-in-1 models.
var standardHumidifier = HumidifierSpec{
	PowerKey:         "pwr",
	FunctionKey:      "func",
	HumidifyingValue: "PH",
	PurifyingValue:   "P",
	TargetKey:        "rhset",
	HumidityKey:      "rh",
	MinHumidity:      40,
	MaxHumidity:      70,
}

// Capabilities lists what a device model supports.
type Capabilities struct {
	// Model is the device model identifier, e.g. "AC2729".
	Model string

	// Humidifier is set for 2-in-1 purifier/humidifier models.
	Humidifier *HumidifierSpec

	// UnavailableFilters lists filter slots the model does not have
	// even though the device may report placeholder attributes.
	UnavailableFilters []FilterType
}

// HasHumidifier reports whether the model can humidify.
func (c Capabilities) HasHumidifier() bool {
	return c.Humidifier != nil
}

// FilterAvailable reports whether the model has the given filter slot.
func (c Capabilities) FilterAvailable(f FilterType) bool {
	for _, u := range c.UnavailableFilters {
		if u == f {
			return false
		}
	}
	return true
}

// capabilities is the model table. Purifier-only models have no wick.
var capabilities = map[string]Capabilities{
	"AC1214": {
		Model:              "AC1214",
		UnavailableFilters: []FilterType{FilterWick},
	},
	"AC2729": {
		Model:      "AC2729",
		Humidifier: &standardHumidifier,
	},
	"AC2889": {
		Model:              "AC2889",
		UnavailableFilters: []FilterType{FilterWick},
	},
	"AC3033": {
		Model:              "AC3033",
		UnavailableFilters: []FilterType{FilterWick, FilterActiveCarbon},
	},
	"AC3829": {
		Model:      "AC3829",
		Humidifier: &standardHumidifier,
	},
	"AC3858": {
		Model:              "AC3858",
		UnavailableFilters: []FilterType{FilterWick, FilterActiveCarbon},
	},
	"AC4236": {
		Model:              "AC4236",
		UnavailableFilters: []FilterType{FilterWick, FilterActiveCarbon},
	},
	"AMF765": {
		Model:              "AMF765",
		UnavailableFilters: []FilterType{FilterWick},
	},
	"AMF870": {
		Model:      "AMF870",
		Humidifier: &standardHumidifier,
	},
	"CX5120": {
		Model:              "CX5120",
		UnavailableFilters: []FilterType{FilterWick},
	},
}

// Lookup returns the capabilities of a model.
func Lookup(model string) (Capabilities, bool) {
	c, ok := capabilities[model]
	return c, ok
}

// Known returns the identifiers of all models in the table.
func Known() []string {
	out := make([]string, 0, len(capabilities))
	for m := range capabilities {
		out = append(out, m)
	}
	return out
}
