package storage

import "errors"

// NotFoundError is returned when a looked-up record does not exist.
type NotFoundError struct {
	// Kind names the record type: "session", "unit", "retrieval".
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return e.Kind + " not found: " + e.ID
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
