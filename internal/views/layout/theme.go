package layout

import "sort"

const DefaultTheme = "cellar"

// ThemeDefinition describes the classes applied to the page shell.
type ThemeDefinition struct {
	ID        string
	Label     string
	BodyClass string
	CardClass string
	MutedText string
}

var themeRegistry = map[string]ThemeDefinition{
	"cellar": {
		ID:        "cellar",
		Label:     "Cellar",
		BodyClass: "min-h-screen bg-stone-950 text-stone-100",
		CardClass: "rounded-xl border border-stone-800 bg-stone-900 p-4",
		MutedText: "text-stone-400",
	},
	"daylight": {
		ID:        "daylight",
		Label:     "Daylight",
		BodyClass: "min-h-screen bg-white text-slate-900",
		CardClass: "rounded-xl border border-slate-200 bg-slate-50 p-4",
		MutedText: "text-slate-500",
	},
}

// ThemeByID returns a definition for the provided identifier, falling back to the default theme.
func ThemeByID(id string) ThemeDefinition {
	if def, ok := themeRegistry[id]; ok {
		return def
	}
	return themeRegistry[DefaultTheme]
}

// ThemeOptions exposes all theme definitions sorted by label.
func ThemeOptions() []ThemeDefinition {
	options := make([]ThemeDefinition, 0, len(themeRegistry))
	for _, def := range themeRegistry {
		options = append(options, def)
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Label < options[j].Label
	})
	return options
}
