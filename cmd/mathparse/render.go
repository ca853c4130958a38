package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zephyrtronium/mathparse"
)

var (
	colorError = lipgloss.Color("#EF4444")
	colorMuted = lipgloss.Color("#6B7280")

	sourceStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	caretStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	messageStyle = lipgloss.NewStyle().Foreground(colorError)
)

// renderError formats an error for the terminal. If err has a position in
// src, the line containing it is shown with a caret under the position.
func renderError(src string, err error) string {
	var ie mathparse.InputError
	if src == "" || !errors.As(err, &ie) {
		return messageStyle.Render(err.Error())
	}
	line, lineno, col := locate(src, ie.Pos())
	msg := err.Error()
	if strings.Contains(src, "\n") {
		msg = "line " + strconv.Itoa(lineno) + ": " + msg
	}
	// Pad by display width so the caret lines up under wide characters.
	pad := strings.Repeat(" ", lipgloss.Width(string([]rune(line)[:col-1])))
	return sourceStyle.Render(line) + "\n" +
		pad + caretStyle.Render("^") + "\n" +
		messageStyle.Render(msg)
}

// locate finds the line of src containing the rune at 1-based offset pos. It
// returns the line, its 1-based number, and the 1-based column of pos within
// it. A position just past the end of src is on the last line.
func locate(src string, pos int) (line string, lineno, col int) {
	r := []rune(src)
	off := min(max(pos-1, 0), len(r))
	start := 0
	lineno = 1
	for i, c := range r[:off] {
		if c == '\n' {
			start = i + 1
			lineno++
		}
	}
	end := start
	for end < len(r) && r[end] != '\n' {
		end++
	}
	return string(r[start:end]), lineno, off - start + 1
}
