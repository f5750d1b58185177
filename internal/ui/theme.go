package ui

import "strings"

// Theme names accepted by SetTheme.
const (
	ThemeClassic = "classic"
	ThemeNeon    = "neon"
	ThemeMono    = "mono"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Title, Muted, Accent, Success, Error, Key string
	CornerTL, CornerTR, CornerBL, CornerBR    string
	H, V                                      string
	SymBullet, SymImage                       string
}

var current = classic()

// Themes lists the known theme names.
func Themes() []string { return []string{ThemeClassic, ThemeNeon, ThemeMono} }

// KnownTheme reports whether name is a theme SetTheme understands.
func KnownTheme(name string) bool {
	for _, t := range Themes() {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

func SetTheme(name string) {
	switch strings.ToLower(name) {
	case ThemeNeon:
		current = Theme{
			Title: "\033[95m", // bright magenta
			Muted: fgGray, Accent: "\033[96m",
			Success: fgGreen, Error: fgRed, Key: "\033[93m",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
			SymBullet: "◆", SymImage: "▣",
		}
	case ThemeMono:
		disableColor = true
		current = Theme{
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
			SymBullet: "*", SymImage: "img:",
		}
	default:
		current = classic()
	}
}

func classic() Theme {
	return Theme{
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Key: fgYellow,
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymBullet: "•", SymImage: "⧉",
	}
}

// Expose what renderers need
func Current() Theme { return current }

// Dim is the faint style used for secondary columns.
func Dim(s string) string { return C(dim, s) }
