package blog

import "time"

// Post is a news entry shown on the staff dashboard.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	CoverImage  string    `json:"coverImage,omitempty"`
	WrittenDate string    `json:"writtenDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
