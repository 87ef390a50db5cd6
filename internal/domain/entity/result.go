package entity

import "github.com/google/uuid"

// Skip records a media item that was omitted from the output.
type Skip struct {
	Path   string      `json:"path"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// Result is the outcome of one gallery run.
type Result struct {
	RunID      uuid.UUID `json:"run_id"`
	OutputPath string    `json:"output_path"`
	Parts      []string  `json:"parts"`
	Total      int       `json:"total"`
	Added      int       `json:"added"`
	Skipped    []Skip    `json:"skipped,omitempty"`
	NoFiles    bool      `json:"no_files,omitempty"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	InputBytes int64     `json:"input_bytes,omitempty"`
}

func (r *Result) Skip(path string, err error) {
	s := Skip{Path: path, Kind: KindOf(err)}
	if err != nil {
		s.Reason = err.Error()
	}
	r.Skipped = append(r.Skipped, s)
}
