package desk

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xenking/product-desk/internal/domain/product"
)

const defaultTheme = "dark"

var themeOrder = []string{"dark", "light"}

// Theme is a named palette.
type Theme struct {
	Name     string
	Text     string
	Muted    string
	Accent   string
	Selected string
	Danger   string
	Status   map[product.Status]string
}

var themes = map[string]Theme{
	"dark": {
		Name:     "dark",
		Text:     "#e0def4",
		Muted:    "#6e6a86",
		Accent:   "#c4a7e7",
		Selected: "#393552",
		Danger:   "#eb6f92",
		Status: map[product.Status]string{
			product.StatusPending:  "#f6c177",
			product.StatusApproved: "#9ccfd8",
			product.StatusRejected: "#eb6f92",
		},
	},
	"light": {
		Name:     "light",
		Text:     "#575279",
		Muted:    "#9893a5",
		Accent:   "#907aa9",
		Selected: "#dfdad9",
		Danger:   "#b4637a",
		Status: map[product.Status]string{
			product.StatusPending:  "#ea9d34",
			product.StatusApproved: "#286983",
			product.StatusRejected: "#b4637a",
		},
	},
}

func themeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[defaultTheme]
}

func nextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return defaultTheme
}

type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
	banner   lipgloss.Style
	errText  lipgloss.Style
	label    lipgloss.Style
	status   map[product.Status]lipgloss.Style
}

func (t Theme) styles() styles {
	s := styles{
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		selected: lipgloss.NewStyle().Background(lipgloss.Color(t.Selected)).Foreground(lipgloss.Color(t.Text)),
		banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Danger)).
			Padding(0, 1),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)).Width(14),
		status:  make(map[product.Status]lipgloss.Style, len(t.Status)),
	}
	for st, c := range t.Status {
		s.status[st] = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true).Width(9)
	}
	return s
}
