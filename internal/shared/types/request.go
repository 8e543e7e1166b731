package types

// InstallRequest carries a manifest + code bundle for installation
type InstallRequest struct {
	Manifest map[string]interface{} `json:"manifest" binding:"required"`
	Code     string                 `json:"code" binding:"required"`
}

// SearchRequest filters registry or catalog entries
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// BrowseRequest filters catalog listings
type BrowseRequest struct {
	Category     string `json:"category,omitempty"`
	FeaturedOnly bool   `json:"featured_only,omitempty"`
}

// CreateCharacterRequest creates a character in the current world
type CreateCharacterRequest struct {
	Name   string                 `json:"name" binding:"required"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// CreateWorldRequest creates a world
type CreateWorldRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateNoteRequest creates a note in the current world
type CreateNoteRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body,omitempty"`
}
