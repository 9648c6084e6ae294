package util

import (
	"strings"
	"unicode"
)

// defaultExportName is used when a path has no title to name the file after.
const defaultExportName = "learning-path"

// Slug converts a string to kebab-case.
// It lowercases the string, replaces spaces and underscores with hyphens,
// removes other punctuation, collapses multiple consecutive hyphens, and
// trims leading/trailing hyphens. Accented letters are kept.
func Slug(s string) string {
	var result strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(unicode.ToLower(r))
		} else if r == ' ' || r == '_' || r == '-' || r == '\'' {
			result.WriteRune('-')
		}
	}

	str := result.String()
	for strings.Contains(str, "--") {
		str = strings.ReplaceAll(str, "--", "-")
	}

	return strings.Trim(str, "-")
}

// ExportFileName returns the file name an export of a path titled title is
// written to when only a directory is given.
func ExportFileName(title string) string {
	name := Slug(title)
	if name == "" {
		name = defaultExportName
	}
	return name + ".json"
}
