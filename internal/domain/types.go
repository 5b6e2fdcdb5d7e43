package domain

import "time"

// Project is a work portfolio entry stored under content/work
type Project struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Category    string   `json:"category"`
	Cover       string   `json:"cover"`
	Images      []string `json:"images"`
	Featured    bool     `json:"featured"`
	Order       float64  `json:"order"`
	Content     string   `json:"content"`
}

// Post is a writing entry stored under content/writing
type Post struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt"`
	Cover   string `json:"cover"`
	Content string `json:"content"`
}

// GalleryItem is one image record of content/gallery.json
type GalleryItem struct {
	ID       string `json:"id"`
	Src      string `json:"src"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Activity records a single admin mutation
type Activity struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
