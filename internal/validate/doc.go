// Package validate provides input validation for tagd's domain types.
//
// Validation runs at the boundary between user input and the store, before
// any query is issued. Each function returns nil on success or an error
// wrapping one of the sentinels in errors.go:
//
//	if errors.Is(err, validate.ErrInvalidTag) {
//	    // handle bad tag name
//	}
//
// Name validates a single tag name. Names validates a batch. Tagging
// validates the association fields (entity type, entity id, context).
package validate
