package timetable

// CountryInfo is a country as shown next to station names.
type CountryInfo struct {
	Code string
	Flag string
}

// countries maps the Polish country names used by the service.
var countries = map[string]CountryInfo{
	"Słowacja": {"sk", "🇸🇰"},
	"Ukraina":  {"ua", "🇺🇦"},
	"Niemcy":   {"de", "🇩🇪"},
	"Czechy":   {"cz", "🇨🇿"},
	"Polska":   {"pl", "🇵🇱"},
	"Litwa":    {"lt", "🇱🇹"},
	"Austria":  {"at", "🇦🇹"},
	"Węgry":    {"hu", "🇭🇺"},
}

// Country returns the code and flag for a country name. An empty name is
// Poland; an unknown one yields its own name and no flag.
func Country(name string) CountryInfo {
	if name == "" {
		return countries["Polska"]
	}
	if c, ok := countries[name]; ok {
		return c
	}
	return CountryInfo{Code: name}
}

// StationKind is the display kind of a station type.
type StationKind struct {
	Label string
	Emoji string
}

// Kind classifies a station type as bus stop, group or rail station.
func Kind(stationType string) StationKind {
	switch stationType {
	case "Quay":
		return StationKind{Label: "BUS", Emoji: "🚏"}
	case "TopographicalPlace":
		return StationKind{Label: "GROUP", Emoji: "🏛️"}
	default:
		return StationKind{Label: "RAIL", Emoji: "🚉"}
	}
}
