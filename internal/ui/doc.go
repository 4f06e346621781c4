// Package ui holds the lipgloss palette and the few static components tvstream
// prints to a terminal: the command Header, the closing Result box and the
// styles the console sink uses for streamed lines.
//
// Output is rendered once and printed; nothing here is interactive. Logging
// goes to stderr through package logging and is silent unless
// TVSTREAM_LOG_LEVEL is set, so these components own stdout.
package ui
