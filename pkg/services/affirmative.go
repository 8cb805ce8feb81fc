package services

import "strings"

// Confirmation words recognized without a model round-trip. Anything outside
// these sets is treated as neither yes nor no.
var (
	affirmativeWords = map[string]struct{}{
		"yes": {}, "y": {}, "yeah": {}, "yep": {}, "ok": {}, "okay": {},
		"sure": {}, "confirm": {}, "correct": {},
		"si": {}, "sí": {}, "sim": {}, "dale": {}, "claro": {}, "correcto": {},
	}
	negativeWords = map[string]struct{}{
		"no": {}, "n": {}, "nope": {}, "nah": {}, "cancel": {},
		"cancelar": {}, "incorrecto": {},
	}
)

func normalizeAnswer(text string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!¡¿?"))
}

// IsAffirmative reports whether a message is an explicit yes.
func IsAffirmative(text string) bool {
	_, ok := affirmativeWords[normalizeAnswer(text)]
	return ok
}

// IsNegative reports whether a message is an explicit no.
func IsNegative(text string) bool {
	_, ok := negativeWords[normalizeAnswer(text)]
	return ok
}
