package model

import (
	"path/filepath"
	"strings"
	"unicode"
)

// RepoConfig describes one data repository gated by a boot invocation.
type RepoConfig struct {
	// Name is the repository identifier as it appears in the targets file,
	// e.g. "BillingRepo". It also determines the migrations directory.
	Name string

	// Target is the application that owns this repository.
	Target string

	// URL is the PostgreSQL connection string for the repository.
	URL string
}

// MigrationsDir returns the directory holding this repository's migration
// units: <dataDir>/<underscored name>/migrations.
func (r RepoConfig) MigrationsDir(dataDir string) string {
	return filepath.Join(dataDir, Underscore(r.Name), "migrations")
}

// Underscore converts a CamelCase repository name to its lower snake_case
// directory form: "BillingRepo" -> "billing_repo", "HTTPRepo" -> "http_repo".
// Dots and dashes are treated as word separators.
func Underscore(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '.' || r == '-' || r == ' ':
			b.WriteRune('_')
		case unicode.IsUpper(r):
			if i > 0 && needsSeparator(runes, i) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// needsSeparator reports whether an underscore belongs before runes[i].
// True at a lower-to-upper boundary ("fooBar") and at the last upper of an
// acronym run ("HTTPRepo" -> http_repo).
func needsSeparator(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '_' || prev == '.' || prev == '-' || prev == ' ' {
		return false
	}
	if !unicode.IsUpper(prev) {
		return true
	}
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
