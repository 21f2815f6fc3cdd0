// Package board implements the drag/drop gesture engine: pure ID-sequence
// reordering plus the per-gesture session state machine that turns pointer
// events into move and reorder commands.
package board

import "slices"

// Reorder returns a new sequence with activeID removed from its original
// position and reinserted at the position occupied by overID. When either id
// is missing, or they are equal, the input is returned unchanged. The input
// slice is never mutated.
func Reorder(ids []string, activeID, overID string) []string {
	activeIdx := slices.Index(ids, activeID)
	overIdx := slices.Index(ids, overID)
	if activeIdx == -1 || overIdx == -1 || activeIdx == overIdx {
		return ids
	}

	next := make([]string, 0, len(ids))
	next = append(next, ids[:activeIdx]...)
	next = append(next, ids[activeIdx+1:]...)
	return slices.Insert(next, overIdx, activeID)
}

// MergeOrder reconciles a locally-held order with an authoritative refresh:
// ids still present keep their current relative order, ids the refresh no
// longer knows are dropped, and new ids are appended in authoritative order.
// MergeOrder(x, x) == x.
func MergeOrder(current, authoritative []string) []string {
	known := make(map[string]struct{}, len(authoritative))
	for _, id := range authoritative {
		known[id] = struct{}{}
	}

	out := make([]string, 0, len(authoritative))
	seen := make(map[string]struct{}, len(authoritative))
	for _, id := range current {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range authoritative {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
