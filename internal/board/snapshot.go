package board

import (
	"sort"
	"strings"

	"github.com/hylla/flyt/internal/domain"
)

// columnTargetPrefix namespaces the droppable container id of each bucket so
// it can never collide with a task id.
const columnTargetPrefix = "section-"

// ColumnTargetID returns the drop-target id of a bucket container.
func ColumnTargetID(status domain.Status) string {
	return columnTargetPrefix + string(status)
}

// Snapshot is an immutable view of the task list taken for the duration of
// one synchronous gesture event. It resolves drop targets and answers
// per-bucket ordering queries; it never mutates the underlying store.
type Snapshot struct {
	statusByTask  map[string]domain.Status
	orderByStatus map[domain.Status][]string
}

// NewSnapshot indexes tasks by id and groups ids per bucket, ordered by
// Order with id as the deterministic tie-break.
func NewSnapshot(tasks []domain.Task) *Snapshot {
	snap := &Snapshot{
		statusByTask:  make(map[string]domain.Status, len(tasks)),
		orderByStatus: make(map[domain.Status][]string),
	}
	byStatus := make(map[domain.Status][]domain.Task)
	for _, task := range tasks {
		snap.statusByTask[task.ID] = task.Status
		byStatus[task.Status] = append(byStatus[task.Status], task)
	}
	for status, bucket := range byStatus {
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Order == bucket[j].Order {
				return bucket[i].ID < bucket[j].ID
			}
			return bucket[i].Order < bucket[j].Order
		})
		ids := make([]string, len(bucket))
		for i, task := range bucket {
			ids[i] = task.ID
		}
		snap.orderByStatus[status] = ids
	}
	return snap
}

// TaskStatus reports the bucket of a known task id.
func (s *Snapshot) TaskStatus(id string) (domain.Status, bool) {
	status, ok := s.statusByTask[id]
	return status, ok
}

// ColumnOrder returns the ordered task ids of one bucket.
func (s *Snapshot) ColumnOrder(status domain.Status) []string {
	return s.orderByStatus[status]
}

// ResolveDropTarget maps an opaque drop-target id onto a bucket: a column
// container yields that bucket, another task yields that task's bucket, and
// anything else is a miss. Misses degrade to no-ops upstream because drag
// gestures race against concurrent deletes.
func (s *Snapshot) ResolveDropTarget(targetID string) (domain.Status, bool) {
	if name, ok := strings.CutPrefix(targetID, columnTargetPrefix); ok {
		status := domain.Status(name)
		if status.Valid() {
			return status, true
		}
		return "", false
	}
	if status, ok := s.statusByTask[targetID]; ok {
		return status, true
	}
	return "", false
}
