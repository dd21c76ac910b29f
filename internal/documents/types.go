package documents

import "time"

// Document is the metadata row for an uploaded client file.
type Document struct {
	ID           int64     `json:"id"`
	ContactID    int64     `json:"contact_id"`
	OriginalName string    `json:"original_name"`
	Mime         string    `json:"mime"`
	StorageKey   string    `json:"storage_key"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeleteResult reports a document delete; Warning is set when the metadata
// row was removed but the underlying file was not.
type DeleteResult struct {
	Warning string `json:"warning,omitempty"`
}
