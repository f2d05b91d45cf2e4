package bridge

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

// darkLightness is the CIE L* cut-off below which a background counts as dark.
const darkLightness = 0.5

// ProbeTheme infers light or dark from the host page's computed background
// colour ("rgb(...)", "rgba(...)" or "#rrggbb"). Anything unreadable or fully
// transparent yields light.
func ProbeTheme(css string) widget.Theme {
	c, ok := parseCSSColor(css)
	if !ok {
		return widget.ThemeLight
	}
	l, _, _ := c.Lab()
	if l < darkLightness {
		return widget.ThemeDark
	}
	return widget.ThemeLight
}

func parseCSSColor(css string) (colorful.Color, bool) {
	css = strings.ToLower(strings.TrimSpace(css))
	if strings.HasPrefix(css, "#") {
		c, err := colorful.Hex(css)
		return c, err == nil
	}

	var args string
	switch {
	case strings.HasPrefix(css, "rgba(") && strings.HasSuffix(css, ")"):
		args = css[len("rgba(") : len(css)-1]
	case strings.HasPrefix(css, "rgb(") && strings.HasSuffix(css, ")"):
		args = css[len("rgb(") : len(css)-1]
	default:
		return colorful.Color{}, false
	}

	parts := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) < 3 {
		return colorful.Color{}, false
	}
	if len(parts) >= 4 {
		alpha, err := strconv.ParseFloat(parts[3], 64)
		if err != nil || alpha == 0 {
			return colorful.Color{}, false
		}
	}

	var rgb [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil || v < 0 || v > 255 {
			return colorful.Color{}, false
		}
		rgb[i] = v / 255
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, true
}

// FormatCSS renders a theme's reference background, used by the embed page.
func FormatCSS(theme widget.Theme) string {
	c := colorful.Color{R: 1, G: 1, B: 1}
	if theme == widget.ThemeDark {
		c = colorful.Color{R: 0.067, G: 0.094, B: 0.153}
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
