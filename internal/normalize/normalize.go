package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name trims a display name, collapses inner whitespace and puts it in NFC.
func Name(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}

// Email only trims; the stored address keeps its case.
func Email(email string) string {
	return strings.TrimSpace(email)
}
