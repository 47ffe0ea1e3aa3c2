// Package colors maps free-text filament color names to display colors.
// Vendor color naming is inconsistent ("Black", "Matte Black", "negro
// carbón"), so resolution falls back from exact lookup to token and substring
// matching before settling on neutral gray.
package colors

import "strings"

// FallbackHex is returned when no table entry matches.
const FallbackHex = "808080"

type entry struct {
	name string
	hex  string
}

// Table order matters: the substring pass returns the first entry whose name
// occurs in the input. English names first, then Spanish spellings.
var table = []entry{
	{"black", "1a1a1a"},
	{"white", "ffffff"},
	{"red", "e63946"},
	{"blue", "1890ff"},
	{"green", "2ecc71"},
	{"yellow", "f1c40f"},
	{"orange", "ff6b00"},
	{"gray", "7f8c8d"},
	{"grey", "7f8c8d"},
	{"purple", "9b59b6"},
	{"pink", "ff69b4"},
	{"brown", "8b4513"},
	{"cyan", "00bcd4"},
	{"magenta", "ff00ff"},
	{"lime", "00ff00"},
	{"navy", "000080"},
	{"teal", "008080"},
	{"olive", "808000"},
	{"maroon", "800000"},
	{"silver", "c0c0c0"},
	{"gold", "ffd700"},

	{"negro", "1a1a1a"},
	{"blanco", "ffffff"},
	{"rojo", "e63946"},
	{"azul", "1890ff"},
	{"verde", "2ecc71"},
	{"amarillo", "f1c40f"},
	{"naranja", "ff6b00"},
	{"gris", "7f8c8d"},
	{"morado", "9b59b6"},
	{"púrpura", "9b59b6"},
	{"purpura", "9b59b6"},
	{"rosa", "ff69b4"},
	{"marrón", "8b4513"},
	{"marron", "8b4513"},
	{"cian", "00bcd4"},
	{"lima", "00ff00"},
	{"marino", "000080"},
	{"turquesa", "008080"},
	{"oliva", "808000"},
	{"granate", "800000"},
	{"plata", "c0c0c0"},
	{"plateado", "c0c0c0"},
	{"dorado", "ffd700"},
	{"oro", "ffd700"},
}

var byName = func() map[string]string {
	m := make(map[string]string, len(table))
	for _, e := range table {
		m[e.name] = e.hex
	}
	return m
}()

// Resolve maps a free-text color name to a 6-hex-digit RGB value without a
// leading symbol. It never fails: unrecognized names resolve to FallbackHex.
func Resolve(colorName string) string {
	name := strings.ToLower(strings.TrimSpace(colorName))
	if name == "" {
		return FallbackHex
	}

	if hex, ok := byName[name]; ok {
		return hex
	}

	for _, token := range strings.Fields(name) {
		if hex, ok := byName[token]; ok {
			return hex
		}
	}

	for _, e := range table {
		if strings.Contains(name, e.name) {
			return e.hex
		}
	}

	return FallbackHex
}
