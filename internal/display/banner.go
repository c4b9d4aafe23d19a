package display

import (
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

const bannerArt = `
  ___         _   __  __         _
 / __|___ ___| |_|  \/  |___  __| |___
| (__/ _ \/ _ \ / / |\/| / _ \/ _` + "`" + ` / -_)
 \___\___/\___/_\_\_|  |_\___/\__,_\___|
`

// RenderBanner returns the banner centred for the current terminal
// width, followed by subtitle.
func RenderBanner(subtitle string) string {
	return centre(strings.Trim(bannerArt, "\n")+"\n\n"+subtitle, termWidth())
}

func centre(text string, width int) string {
	lines := strings.Split(text, "\n")
	maxW := 0
	for _, l := range lines {
		if len(l) > maxW {
			maxW = len(l)
		}
	}

	pad := ""
	if width > maxW {
		pad = strings.Repeat(" ", (width-maxW)/2)
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(pad)
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the current terminal column count, or 80.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
