package domain

import "fmt"

// ValidationError reports that an item failed a required-field or range
// check. Field names the offending field in lower case.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item: %s", e.Reason)
}

// NotFoundError reports that an operation referenced an item ID that is not
// in the collection.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ID)
}
