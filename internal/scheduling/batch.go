package scheduling

import (
	"cmp"
	"slices"
)

// OrderForBatch returns tasks sorted by priority descending, then by existing
// due date ascending. Tasks without a due date go last; ties keep input order.
func OrderForBatch(tasks []TaskRef) []TaskRef {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b TaskRef) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	})
	return out
}
