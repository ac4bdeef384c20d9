package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// Style selects how Print renders an error.
type Style int

const (
	// StyleTerminal is multi-line output with ANSI colors.
	StyleTerminal Style = iota

	// StylePlain is StyleTerminal without escape codes, for pipes and
	// NO_COLOR.
	StylePlain

	// StyleJSON is one JSON object per line, for --json callers.
	StyleJSON
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

// painter applies ANSI codes only when enabled.
type painter bool

func (p painter) paint(code, text string) string {
	if !p {
		return text
	}
	return code + text + ansiReset
}

// Format renders e for a terminal. color controls ANSI escape codes.
func (e *OptimistError) Format(color bool) string {
	p := painter(color)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(p.paint(ansiRed+ansiBold, "ERROR"))
	if e.Code != "" {
		b.WriteString(" " + p.paint(ansiBold, e.Code))
	}
	b.WriteString(": " + e.Message + "\n\n")

	for _, line := range wrapText(e.Detail, 70) {
		b.WriteString("  " + line + "\n")
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", p.paint(ansiGray, "Cause: "), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", p.paint(ansiCyan, "Hint: "), e.Suggestion)
	}

	return b.String()
}

// jsonError is the StyleJSON wire shape.
type jsonError struct {
	Code       string   `json:"code,omitempty"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Cause      string   `json:"cause,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// FormatJSON returns e as a single-line JSON object.
func (e *OptimistError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// Print writes err to w. An error without an OptimistError in its chain is
// reported under fallbackCode.
func Print(w io.Writer, err error, style Style, fallbackCode string) {
	if err == nil {
		return
	}
	oe := FromError(err, fallbackCode)

	switch style {
	case StyleJSON:
		fmt.Fprintln(w, oe.FormatJSON())
	case StylePlain:
		fmt.Fprint(w, oe.Format(false))
	default:
		fmt.Fprint(w, oe.Format(true))
	}
}

// FromError returns the OptimistError in err's chain, or wraps err under
// code when there is none.
func FromError(err error, code string) *OptimistError {
	if err == nil {
		return nil
	}
	var oe *OptimistError
	if stderrors.As(err, &oe) {
		return oe
	}
	return New(code).Wrap(err)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	var (
		lines   []string
		current strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
