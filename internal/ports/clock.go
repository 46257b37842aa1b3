// Package ports defines interfaces for external dependencies (Ports and Adapters pattern).
package ports

import "time"

// Clock abstracts time so expiry logic can be tested.
type Clock interface {
	Now() time.Time
}
