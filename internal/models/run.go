package models

import "time"

// Run records one completed pipeline invocation.
type Run struct {
	ID         int64     `json:"id"`
	Prefix     string    `json:"prefix"`
	SourcePath string    `json:"source_path"`
	ArchiveDir string    `json:"archive_dir"`
	FaceCount  int       `json:"face_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Detection represents one detected face region stored for a run.
type Detection struct {
	ID     int64 `json:"id"`
	RunID  int64 `json:"run_id"`
	X      int   `json:"x"`
	Y      int   `json:"y"`
	Width  int   `json:"width"`
	Height int   `json:"height"`
}
