// errors.go defines sentinel errors for validation failures.
//
// Sentinels rather than error types: a validation failure carries no data
// beyond its category. Detail is added by wrapping with fmt.Errorf.

package validate

import "errors"

var (
	ErrInvalidTag     = errors.New("invalid tag")
	ErrTagTooLong     = errors.New("tag too long")
	ErrInvalidTagging = errors.New("invalid tagging")
)
