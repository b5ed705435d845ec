// Package ux provides terminal output styling for the ledgerdeploy CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Ledgerdeploy color palette - slate blues and vault greens
var (
	ColorGreenBright = lipgloss.Color("#3DDC84") // Bright green - success, healthy
	ColorGreenDeep   = lipgloss.Color("#1E9E5A") // Deep green - borders, accents
	ColorBluePrimary = lipgloss.Color("#4A90D9") // Primary blue - brand, headings
	ColorBlueSteel   = lipgloss.Color("#35628E") // Steel blue - secondary elements
	ColorSlate       = lipgloss.Color("#55616E") // Slate - muted text, borders

	// Semantic colors
	ColorSuccess = lipgloss.Color("#3DDC84")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#55616E")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	SuccessBox lipgloss.Style
	ErrorBox   lipgloss.Style

	StatusOK      lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorBluePrimary),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorBlueSteel),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorGreenBright).Bold(true),

	SuccessBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGreenDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	StatusOK:      lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	StatusWarning: lipgloss.NewStyle().SetString("⚠").Foreground(ColorWarning),
	StatusError:   lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	StatusPending: lipgloss.NewStyle().SetString("○").Foreground(ColorSlate),
}

// plain is true when stdout is not a terminal; styled output degrades to
// unstyled text so piped output stays machine-readable.
var plain = !isatty.IsTerminal(os.Stdout.Fd())

// Titlef prints a styled section title.
func Titlef(format string, args ...any) {
	render(Styles.Title, fmt.Sprintf(format, args...))
}

// Successf prints a success line with a check glyph.
func Successf(format string, args ...any) {
	renderStatus(Styles.StatusOK, Styles.Success, fmt.Sprintf(format, args...))
}

// Warningf prints a warning line with a warning glyph.
func Warningf(format string, args ...any) {
	renderStatus(Styles.StatusWarning, Styles.Warning, fmt.Sprintf(format, args...))
}

// Errorf prints an error line with a cross glyph.
func Errorf(format string, args ...any) {
	renderStatus(Styles.StatusError, Styles.Error, fmt.Sprintf(format, args...))
}

// Infof prints an unstyled informational line.
func Infof(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// SuccessBanner prints a boxed multi-line success summary.
func SuccessBanner(lines ...string) {
	banner(Styles.SuccessBox, lines)
}

// FailureBanner prints a boxed multi-line failure summary.
func FailureBanner(lines ...string) {
	banner(Styles.ErrorBox, lines)
}

func banner(box lipgloss.Style, lines []string) {
	body := strings.Join(lines, "\n")
	if plain {
		fmt.Println(body)
		return
	}
	fmt.Println(box.Render(body))
}

func render(style lipgloss.Style, s string) {
	if plain {
		fmt.Println(s)
		return
	}
	fmt.Println(style.Render(s))
}

func renderStatus(glyph, style lipgloss.Style, s string) {
	if plain {
		fmt.Println(s)
		return
	}
	fmt.Printf("%s %s\n", glyph.String(), style.Render(s))
}
