package api

// locale pairs a search interface language (hl) with a result geography (gl).
type locale struct {
	Language string
	Region   string
}

// countryLocales maps a country name from the run request to its search
// locale. Unknown countries fall back to Poland.
var countryLocales = map[string]locale{
	"Poland":                 {"pl", "pl"},
	"Germany":                {"de", "de"},
	"United Kingdom":         {"en", "uk"},
	"France":                 {"fr", "fr"},
	"Spain":                  {"es", "es"},
	"Italy":                  {"it", "it"},
	"Netherlands":            {"nl", "nl"},
	"Belgium":                {"nl", "be"},
	"Sweden":                 {"sv", "se"},
	"Norway":                 {"no", "no"},
	"Denmark":                {"da", "dk"},
	"Finland":                {"fi", "fi"},
	"Switzerland":            {"de", "ch"},
	"Austria":                {"de", "at"},
	"Portugal":               {"pt", "pt"},
	"Ireland":                {"en", "ie"},
	"Greece":                 {"el", "gr"},
	"Czech Republic":         {"cs", "cz"},
	"Slovakia":               {"sk", "sk"},
	"Hungary":                {"hu", "hu"},
	"Romania":                {"ro", "ro"},
	"Bulgaria":               {"bg", "bg"},
	"Croatia":                {"hr", "hr"},
	"Serbia":                 {"sr", "rs"},
	"Ukraine":                {"uk", "ua"},
	"Lithuania":              {"lt", "lt"},
	"Latvia":                 {"lv", "lv"},
	"Estonia":                {"et", "ee"},
	"Slovenia":               {"sl", "si"},
	"Iceland":                {"is", "is"},
	"Albania":                {"sq", "al"},
	"Bosnia and Herzegovina": {"bs", "ba"},
	"Kosovo":                 {"sq", "xk"},
	"North Macedonia":        {"mk", "mk"},
	"Moldova":                {"ro", "md"},
	"Montenegro":             {"sr", "me"},
}

func localeFor(country string) locale {
	if l, ok := countryLocales[country]; ok {
		return l
	}
	return countryLocales["Poland"]
}
