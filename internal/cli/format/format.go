package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
)

// Output formats accepted by Result.
const (
	JSON     = "json"
	Markdown = "markdown"
	Text     = "text"
)

// Formats lists the accepted output formats.
var Formats = []string{JSON, Markdown, Text}

const (
	maxJSONSize     = 10 * 1024 * 1024 // 10MB
	maxMarkdownSize = 5 * 1024 * 1024  // 5MB
	maxTextSize     = 100 * 1024 * 1024
)

// ansiEscapeRegex matches ANSI escape sequences for sanitization.
var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// sanitizeANSI removes ANSI escape sequences from a string.
func sanitizeANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

// enforceSize checks if content exceeds the maximum size for its format.
func enforceSize(content string, format string, maxSize int) error {
	if len(content) > maxSize {
		return fmt.Errorf("output size (%d bytes) exceeds maximum for %s format (%d bytes)", len(content), format, maxSize)
	}
	return nil
}

// Result renders an operation result. Markdown and text only apply to
// string results; anything else is printed as JSON.
func Result(v any, format string, isTTY bool) (string, error) {
	switch strings.ToLower(format) {
	case "", JSON:
		return FormatJSON(v, isTTY)
	case Markdown:
		if s, ok := v.(string); ok {
			return FormatMarkdown(s, isTTY)
		}
		return FormatJSON(v, isTTY)
	case Text:
		if s, ok := v.(string); ok {
			return FormatText(s)
		}
		return FormatJSON(v, isTTY)
	default:
		return "", fmt.Errorf("unknown format %q (want one of: %s)", format, strings.Join(Formats, ", "))
	}
}

// FormatJSON pretty-prints v with 2-space indentation, highlighted when
// writing to a terminal.
func FormatJSON(v any, isTTY bool) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to format JSON: %w", err)
	}
	content := strings.TrimSuffix(buf.String(), "\n")

	if err := enforceSize(content, JSON, maxJSONSize); err != nil {
		return "", err
	}

	if !isTTY {
		return content, nil
	}

	var out bytes.Buffer
	if err := quick.Highlight(&out, content, "json", "terminal256", "monokai"); err != nil {
		return content, nil
	}
	return out.String(), nil
}

// FormatMarkdown renders markdown with ANSI formatting if stdout is a TTY.
// Escape sequences in the content itself are stripped first.
func FormatMarkdown(content string, isTTY bool) (string, error) {
	if err := enforceSize(content, Markdown, maxMarkdownSize); err != nil {
		return "", err
	}

	content = sanitizeANSI(content)
	if !isTTY {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content, nil
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content, nil
	}
	return rendered, nil
}

// FormatText returns the string with escape sequences removed.
func FormatText(content string) (string, error) {
	if err := enforceSize(content, Text, maxTextSize); err != nil {
		return "", err
	}
	return sanitizeANSI(content), nil
}
