package models

import "time"

// Document is a source document with its extracted text. Upload and text
// extraction happen in an external pipeline; the core only reads these
// records.
type Document struct {
	ID            string
	OwnerID       string
	Title         string
	ExtractedText string
	CreatedAt     time.Time
}
