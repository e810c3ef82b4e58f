package models

// ConflictType classifies a scheduling conflict
type ConflictType string

const (
	ConflictNone     ConflictType = "none"
	ConflictTime     ConflictType = "time"
	ConflictPriority ConflictType = "priority"
	ConflictDate     ConflictType = "date"
)

// ConflictReport is the outcome of a conflict check. It is computed on demand
// and never persisted.
type ConflictReport struct {
	HasConflict      bool         `json:"has_conflict"`
	ConflictType     ConflictType `json:"conflict_type"`
	ConflictingTasks []*Task      `json:"conflicting_tasks"`
	Recommendation   string       `json:"recommendation"`
}

// NoConflict returns an empty report
func NoConflict() ConflictReport {
	return ConflictReport{
		ConflictType:     ConflictNone,
		ConflictingTasks: []*Task{},
	}
}
