package models

import "time"

// PostID is the service-assigned post identifier. IDs are unique and
// non-decreasing in creation order; the client never assigns one.
type PostID uint64

// Timestamp is nanoseconds since the Unix epoch, assigned by the service
// at post creation.
type Timestamp int64

func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

// Post is a single blog post as returned by the service. Body is
// HTML-formatted rich text. Category should reference an existing
// Category.Name, but the service does not guarantee it.
type Post struct {
	ID        PostID    `cbor:"id" json:"id"`
	Title     string    `cbor:"title" json:"title"`
	Body      string    `cbor:"body" json:"body"`
	Author    Author    `cbor:"author" json:"author"`
	Timestamp Timestamp `cbor:"timestamp" json:"timestamp"`
	Category  string    `cbor:"category" json:"category"`
}

// Category is an immutable snapshot fetched per load. Names are unique and
// non-empty; categories are never created client-side.
type Category struct {
	Name        string `cbor:"name" json:"name"`
	Description string `cbor:"description" json:"description"`
}
