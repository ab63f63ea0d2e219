// Package inspect renders device status for humans. Known attributes
// get readable names, units, and value translations; unknown attributes
// fall back to their raw form.
package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/airctrl-protocol/airctrl-go/pkg/status"
)

// Formatter formats status output.
type Formatter struct {
	// ShowRawKeys includes the raw attribute key alongside the label.
	ShowRawKeys bool

	// IndentWidth is the number of spaces per indent level.
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowRawKeys: true,
		IndentWidth: 2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatStatus renders a full status snapshot, one attribute per line,
// known attributes first in alphabetical label order.
func (f *Formatter) FormatStatus(st status.DeviceStatus) string {
	if len(st) == 0 {
		return "(no status)"
	}

	type line struct {
		label string
		text  string
		known bool
	}

	lines := make([]line, 0, len(st))
	for key, value := range st {
		attr, known := attributes[key]
		label := key
		if known {
			label = attr.Label
		}
		lines = append(lines, line{
			label: label,
			text:  f.formatLine(key, value),
			known: known,
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].known != lines[j].known {
			return lines[i].known
		}
		return lines[i].label < lines[j].label
	})

	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(f.Indent(1, l.text))
	}
	return sb.String()
}

// FormatAttribute renders a single attribute line.
func (f *Formatter) FormatAttribute(key string, value any) string {
	return f.formatLine(key, value)
}

func (f *Formatter) formatLine(key string, value any) string {
	attr, known := attributes[key]
	if !known {
		return fmt.Sprintf("%-24s %v", key, value)
	}

	label := attr.Label
	if f.ShowRawKeys {
		label = fmt.Sprintf("%s (%s)", attr.Label, key)
	}
	return fmt.Sprintf("%-24s %s", label, f.FormatValue(key, value))
}

// FormatValue renders an attribute value, applying value translations
// and units for known attributes.
func (f *Formatter) FormatValue(key string, value any) string {
	attr, known := attributes[key]
	if !known {
		return fmt.Sprint(value)
	}

	raw := fmt.Sprint(value)
	if v, ok := value.(float64); ok && v == float64(int64(v)) {
		raw = fmt.Sprintf("%d", int64(v))
	}

	if translated, ok := attr.Values[raw]; ok {
		return translated
	}
	if attr.Unit != "" {
		return raw + " " + attr.Unit
	}
	return raw
}

// Label returns the display name for a status key.
func Label(key string) string {
	if attr, ok := attributes[key]; ok {
		return attr.Label
	}
	return key
}
