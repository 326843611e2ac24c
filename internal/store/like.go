package store

import "strings"

// likeEscaper escapes LIKE wildcards using '!' as the escape character.
// '!' is used instead of backslash so patterns read the same in SQLite and
// Postgres, where backslash is already the default escape.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes s so it matches literally inside a LIKE pattern
// declared with ESCAPE '!'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// containsPattern returns the LIKE pattern matching s anywhere in a value.
func containsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
