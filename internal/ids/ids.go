package ids

import "github.com/segmentio/ksuid"

// New returns a fresh sortable identifier.
func New() string {
	return ksuid.New().String()
}
