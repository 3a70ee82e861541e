package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}
	if cfg.MaxWidth == 0 {
		cfg.MaxWidth = terminalWidth()
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// terminalWidth returns the stdout terminal width, or 120 when stdout is
// not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 120
	}

	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 120
	}
	return width
}

// formatValue renders an attribute value for display.
func formatValue(id attribute.ID, v any) string {
	if v == nil {
		return "-"
	}

	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []string:
		return strings.Join(val, ", ")
	case int64:
		if kind, ok := attribute.KindOf(id); ok && kind == attribute.KindSize {
			return formatSize(val)
		}
		return formatNumber(val)
	case float64:
		return formatFloat(val, 1)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatSize renders a byte count using decimal units.
func formatSize(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTP"[exp])
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	result := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// formatFloat formats a float with specified precision.
func formatFloat(f float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, f)
}

// truncate shortens a string to at most width columns, keeping the tail.
// Paths are more recognizable by their tail than their head.
func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[len(s)-width:]
	}
	return "..." + s[len(s)-(width-3):]
}

// itemLabel returns the display label of an item: the file name if
// fetched, otherwise the identity.
func itemLabel(item reconcile.Item) string {
	if v, ok := item.Attribute(attribute.FileName); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return string(item.ID())
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	separator := strings.Repeat("=", len(title))

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, separator)
	return err
}
