package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one labelled header value. Params render in the order given.
type Param struct {
	Key   string
	Value string
}

// Header is the banner printed before a command runs.
type Header struct {
	Title   string  // e.g., "tvstream"
	Command string  // e.g., "tvstream stream"
	Params  []Param // e.g., {"Endpoint", "wss://data.tradingview.com/..."}
	Width   int     // Terminal width for responsive rendering
}

// NewHeader creates a new header sized to the terminal
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	commandLine := HeaderCommandStyle.Render(h.Command)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	// Account for border and padding
	divider := RenderHorizontalDivider(max(width-6, 10), "─")

	keyWidth := 0
	for _, p := range h.Params {
		keyWidth = max(keyWidth, len(p.Key)+1)
	}
	var paramLines []string
	for _, p := range h.Params {
		key := HeaderParamKeyStyle.Render(padRight(p.Key+":", keyWidth))
		paramLines = append(paramLines, key+" "+HeaderParamValueStyle.Render(p.Value))
	}

	content := topSection
	if len(paramLines) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, topSection, divider, strings.Join(paramLines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2). // Account for border characters
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
