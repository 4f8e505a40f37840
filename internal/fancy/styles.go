package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	RootStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	ComponentStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	ScriptStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ScheduleStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	FunctionStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	PropertyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// ScriptText styles a script reference
func ScriptText(text string) string {
	return ScriptStyle.Render(text)
}

// ScheduleText styles a schedule name
func ScheduleText(text string) string {
	return ScheduleStyle.Render(text)
}

// FunctionText styles a capability name
func FunctionText(text string) string {
	return FunctionStyle.Render(text)
}

// ErrorText styles an error message
func ErrorText(text string) string {
	return ErrorStyle.Render(text)
}
