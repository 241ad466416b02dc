package domain

import "time"

// Task statuses. The workflow is flat: any status may follow any other.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusCompleted  = "completed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task is a unit of work owned by a member.
//
// Invariant: CompletedAt is non-nil exactly when Status is "completed".
// MemberID never changes after creation.
type Task struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"memberId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// ValidStatus reports whether s is a recognized task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is a recognized task priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DeriveCompletedAt computes the completion timestamp implied by a status.
// It is evaluated on the new status value alone, not on a transition edge:
// any non-completed status clears the timestamp even when the status did not
// change, and a task already completed keeps its original timestamp. Create
// and update paths both call this with the same semantics.
func DeriveCompletedAt(newStatus string, prev *time.Time, now time.Time) *time.Time {
	if newStatus != StatusCompleted {
		return nil
	}
	if prev != nil {
		return prev
	}
	t := now.UTC()
	return &t
}
