package entity

import "github.com/google/uuid"

// GalleryRequest is the inbound message from the gallery.requests queue.
type GalleryRequest struct {
	RequestID   string   `json:"request_id"`
	Paths       []string `json:"paths"`
	OutputPath  string   `json:"output_path"`
	NotifyEmail string   `json:"notify_email,omitempty"`
}

// RunStatusMessage is the outbound message published with the gallery.status routing key.
type RunStatusMessage struct {
	RunID        uuid.UUID `json:"run_id"`
	RequestID    string    `json:"request_id,omitempty"`
	Status       RunStatus `json:"status"`
	OutputPath   string    `json:"output_path"`
	Parts        []string  `json:"parts,omitempty"`
	Total        int       `json:"total"`
	Added        int       `json:"added"`
	Skipped      int       `json:"skipped"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
