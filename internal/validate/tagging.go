// tagging.go validates the fields of a tag association.

package validate

import (
	"fmt"
	"strings"
)

// Tagging validates the entity reference and context of an association.
// All three fields are required; whitespace-only values are rejected.
func Tagging(taggableType, taggableID, context string) error {
	switch {
	case strings.TrimSpace(taggableType) == "":
		return fmt.Errorf("%w: empty taggable type", ErrInvalidTagging)
	case strings.TrimSpace(taggableID) == "":
		return fmt.Errorf("%w: empty taggable id", ErrInvalidTagging)
	case strings.TrimSpace(context) == "":
		return fmt.Errorf("%w: empty context", ErrInvalidTagging)
	}
	return nil
}
