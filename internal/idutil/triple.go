package idutil

import "fmt"

// Triple addresses one configured object — a metric, an encoding config, or
// a report config — by (customer, project, id). Deletion by key prefix
// purges exactly one triple's data (spec §3 invariant 1).
type Triple struct {
	CustomerID uint32
	ProjectID  uint32
	ID         uint32
}

func (t Triple) String() string {
	return fmt.Sprintf("%d:%d:%d", t.CustomerID, t.ProjectID, t.ID)
}
