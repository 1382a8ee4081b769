package blacklist

import "context"

// Result is the outcome of an IMEI registry lookup.
type Result struct {
	Blacklisted bool   `json:"blacklisted"`
	Reason      string `json:"reason,omitempty"`
}

// Checker consults an IMEI blacklist registry. Implementations must return
// within a bounded time; a failed or slow lookup degrades registration to an
// unverified, flagged device rather than blocking it.
type Checker interface {
	Check(ctx context.Context, imei string) (*Result, error)
}
