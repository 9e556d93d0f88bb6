package items

import "time"

// Item is one entry on a user's list. Only the minimal fields needed for
// ownership-checked CRUD live here.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}
