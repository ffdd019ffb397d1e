package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin palette. Dark terminals get Mocha, light terminals Latte.
var (
	Base     = flavor("#eff1f5", "#1e1e2e")
	Surface0 = flavor("#ccd0da", "#313244")
	Surface1 = flavor("#bcc0cc", "#45475a")
	Surface2 = flavor("#acb0be", "#585b70")
	Overlay0 = flavor("#9ca0b0", "#6c7086")
	Subtext0 = flavor("#6c6f85", "#a6adc8")
	Subtext1 = flavor("#5c5f77", "#bac2de")
	Text     = flavor("#4c4f69", "#cdd6f4")

	Blue   = flavor("#1e66f5", "#89b4fa")
	Sky    = flavor("#04a5e5", "#89dceb")
	Green  = flavor("#40a02b", "#a6e3a1")
	Yellow = flavor("#df8e1d", "#f9e2af")
	Peach  = flavor("#fe640b", "#fab387")
	Red    = flavor("#d20f39", "#f38ba8")
	Mauve  = flavor("#8839ef", "#cba6f7")
)

func flavor(latte, mocha string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: latte, Dark: mocha}
}
