package interpreter

import (
	"fmt"
	"io"
	"sort"
)

// Debug categories and their ANSI colors, mirroring the interpreter's
// internal phases. All categories start disabled; the core stays silent
// unless the host turns one on.
var debugCategories = map[string]string{
	"eval":        "\033[36m",
	"env_lookup":  "\033[33m",
	"env_binding": "\033[32m",
	"builtin":     "\033[35m",
	"gc":          "\033[31m",
	"parse":       "\033[34m",
	"library":     "\033[37m",
}

// Debug is a category-gated diagnostic logger used by the REPL's :debug
// commands.
type Debug struct {
	enabled map[string]bool
	colors  bool
	out     io.Writer
}

// NewDebug creates a logger writing to out with every category disabled.
func NewDebug(out io.Writer) *Debug {
	return &Debug{
		enabled: make(map[string]bool),
		colors:  true,
		out:     out,
	}
}

// Categories lists the known category names in sorted order.
func Categories() []string {
	names := make([]string, 0, len(debugCategories))
	for name := range debugCategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enable turns a category on. Unknown categories report an error so typos
// in :debug commands surface immediately.
func (d *Debug) Enable(category string) error {
	if _, ok := debugCategories[category]; !ok {
		return fmt.Errorf("unknown debug category: %s", category)
	}
	d.enabled[category] = true
	return nil
}

// Disable turns a category off.
func (d *Debug) Disable(category string) error {
	if _, ok := debugCategories[category]; !ok {
		return fmt.Errorf("unknown debug category: %s", category)
	}
	delete(d.enabled, category)
	return nil
}

// EnableAll turns every category on.
func (d *Debug) EnableAll() {
	for name := range debugCategories {
		d.enabled[name] = true
	}
}

// DisableAll turns every category off.
func (d *Debug) DisableAll() {
	d.enabled = make(map[string]bool)
}

// IsEnabled reports whether a category is active.
func (d *Debug) IsEnabled(category string) bool {
	return d.enabled[category]
}

// Enabled lists the active categories in sorted order.
func (d *Debug) Enabled() []string {
	names := make([]string, 0, len(d.enabled))
	for name := range d.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetColors toggles ANSI colors on the category prefix.
func (d *Debug) SetColors(enabled bool) { d.colors = enabled }

// ColorsEnabled reports the current color setting.
func (d *Debug) ColorsEnabled() bool { return d.colors }

// Logf writes one formatted line when category is enabled.
func (d *Debug) Logf(category, format string, args ...any) {
	if !d.enabled[category] {
		return
	}
	prefix := "[" + category + "]"
	if d.colors {
		prefix = debugCategories[category] + prefix + "\033[0m"
	}
	fmt.Fprintf(d.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}
