package bridge

import (
	"testing"

	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

func TestProbeTheme(t *testing.T) {
	cases := map[string]widget.Theme{
		"rgb(255, 255, 255)":    widget.ThemeLight,
		"rgb(17, 24, 39)":       widget.ThemeDark,
		"rgba(0, 0, 0, 0)":      widget.ThemeLight,
		"rgba(10, 10, 10, 0.9)": widget.ThemeDark,
		"rgb(30 30 30 / 1)":     widget.ThemeDark,
		"#fafafa":               widget.ThemeLight,
		"#000000":               widget.ThemeDark,
		"transparent":           widget.ThemeLight,
		"":                      widget.ThemeLight,
		"rgb(300, 0, 0)":        widget.ThemeLight,
	}
	for css, want := range cases {
		if got := ProbeTheme(css); got != want {
			t.Errorf("ProbeTheme(%q) = %s, want %s", css, got, want)
		}
	}
}

func TestFormatCSSRoundTripsThroughProbe(t *testing.T) {
	for _, theme := range []widget.Theme{widget.ThemeLight, widget.ThemeDark} {
		if got := ProbeTheme(FormatCSS(theme)); got != theme {
			t.Errorf("theme %s probed as %s", theme, got)
		}
	}
}
