package inspect

// attribute describes how one status key is displayed.
type attribute struct {
	// Label is the human-readable attribute name.
	Label string

	// Unit is appended to numeric values.
	Unit string

	// Values maps raw device values to display strings.
	Values map[string]string
}

// attributes is the display table for known status keys. Unknown keys
// are shown with their raw name and value.
var attributes = map[string]attribute{
	"pwr": {
		Label:  "Power",
		Values: map[string]string{"1": "on", "0": "off"},
	},
	"mode": {
		Label: "Mode",
		Values: map[string]string{
			"P":  "auto",
			"A":  "allergen",
			"S":  "sleep",
			"M":  "manual",
			"B":  "bacteria",
			"N":  "night",
			"T":  "turbo",
			"AG": "auto general",
		},
	},
	"func": {
		Label: "Function",
		Values: map[string]string{
			"P":  "purification",
			"PH": "purification and humidification",
		},
	},
	"om": {
		Label: "Fan Speed",
		Values: map[string]string{
			"s": "silent",
			"t": "turbo",
		},
	},
	"rhset": {Label: "Target Humidity", Unit: "%"},
	"rh":    {Label: "Humidity", Unit: "%"},
	"temp":  {Label: "Temperature", Unit: "°C"},
	"pm25":  {Label: "PM2.5", Unit: "µg/m³"},
	"iaql":  {Label: "Allergen Index"},
	"aqil":  {Label: "Light Brightness", Unit: "%"},
	"uil": {
		Label:  "Button Lights",
		Values: map[string]string{"1": "on", "0": "off"},
	},
	"cl":   {Label: "Child Lock"},
	"dt":   {Label: "Timer", Unit: "h"},
	"dtrs": {Label: "Timer Remaining", Unit: "min"},
	"wl":   {Label: "Water Level", Unit: "%"},
	"err": {
		Label: "Error",
		Values: map[string]string{
			"0":     "none",
			"49408": "no water",
			"32768": "water tank open",
			"49155": "pre-filter must be cleaned",
		},
	},
	"fltsts0": {Label: "Pre-filter", Unit: "h"},
	"fltsts1": {Label: "HEPA Filter", Unit: "h"},
	"fltsts2": {Label: "Active Carbon Filter", Unit: "h"},
	"wicksts": {Label: "Humidification Wick", Unit: "h"},

	"name":        {Label: "Name"},
	"type":        {Label: "Model"},
	"modelid":     {Label: "Model ID"},
	"swversion":   {Label: "Firmware"},
	"DeviceId":    {Label: "Device ID"},
	"WifiVersion": {Label: "WiFi Firmware"},
}
