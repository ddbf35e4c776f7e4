package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/ui/theme"
)

const bannerArt = `
    _    _             _____      _
   / \  | | __ _  ___ |_   _|   _| |_ ___  _ __
  / _ \ | |/ _` + "`" + ` |/ _ \  | || | | | __/ _ \| '__|
 / ___ \| | (_| | (_) | | || |_| | || (_) | |
/_/   \_\_|\__, |\___/  |_| \__,_|\__\___/|_|
           |___/`

const bannerCompact = "A L G O T U T O R"

// RenderBanner returns the banner in the primary colour, or a compact
// fallback below 50 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 50 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
