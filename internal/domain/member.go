package domain

import "time"

// Member is a managed person owned by exactly one user. Ownership never
// transfers; every task access walks user -> member -> task.
type Member struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
