// tag.go implements tag name validation.

package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted tag name, counted in characters.
const MaxNameLength = 255

// Name validates a tag name.
//
// Validation rules:
//   - Empty names rejected
//   - Null bytes rejected
//   - Invalid UTF-8 rejected (the name is case-folded as text)
//   - More than MaxNameLength characters rejected
func Name(n string) error {
	if n == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTag)
	}
	if strings.ContainsRune(n, 0) {
		return fmt.Errorf("%w: null byte in name", ErrInvalidTag)
	}
	if !utf8.ValidString(n) {
		return fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidTag)
	}
	if c := utf8.RuneCountInString(n); c > MaxNameLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrTagTooLong, c, MaxNameLength)
	}
	return nil
}

// Names validates every name in a batch, reporting the first failure with
// its position.
func Names(names []string) error {
	for i, n := range names {
		if err := Name(n); err != nil {
			return fmt.Errorf("name %d: %w", i+1, err)
		}
	}
	return nil
}
