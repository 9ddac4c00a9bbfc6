package status

import "github.com/skyezerfox/moss/models"

// Kind is the variant of an Entry.
type Kind int

const (
	// Unknown means never queried, or the last query failed.
	Unknown Kind = iota
	// Pending means a request is in flight.
	Pending
	// Resolved means a status document was fetched.
	Resolved
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Entry is the status of one address. Doc is always set for Resolved.
type Entry struct {
	Kind Kind
	Doc  *models.ServerStatus
}
