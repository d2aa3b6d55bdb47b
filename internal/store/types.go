package store

import (
	"time"
)

// Photo holds image metadata and the results of the analysis pipeline.
type Photo struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	MimeType         string     `json:"mime_type"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	TakenAt          *time.Time `json:"taken_at,omitempty"`
	Processed        bool       `json:"processed"`
	ProcessingError  string     `json:"processing_error,omitempty"`
	Favorite         bool       `json:"favorite"`
	ClipEmbedding    []float32  `json:"-"`

	// Populated on detail queries.
	Detections []Detection `json:"detections,omitempty"`
	Faces      []Face      `json:"faces,omitempty"`
}

// Detection is a single object-detection result for a photo.
type Detection struct {
	ID         string    `json:"id"`
	PhotoID    string    `json:"photo_id"`
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2], normalized 0-1
}

// Face is a detected face. ClusterID is empty while the face is
// unclustered; Embedding may be empty if recognition failed.
type Face struct {
	ID         string    `json:"id"`
	PhotoID    string    `json:"photo_id"`
	ClusterID  string    `json:"cluster_id,omitempty"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2], normalized 0-1
	Age        int       `json:"age,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Cluster groups faces believed to depict the same person. Centroid is
// the mean of the member embeddings; it is recomputed from the full
// membership, never incrementally blended, and may be transiently stale
// in the middle of a multi-step clustering operation.
type Cluster struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name,omitempty"`
	Centroid              []float32 `json:"-"`
	RepresentativePhotoID string    `json:"representative_photo_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	// FaceCount is populated by list queries.
	FaceCount int `json:"face_count"`
}

// Category aggregates object detections of a single class across the
// gallery: how many detections carry the class and which photos show it.
type Category struct {
	ClassName string   `json:"class_name"`
	Count     int      `json:"count"`
	PhotoIDs  []string `json:"photo_ids"`
}

// GalleryStats summarizes the stored gallery for the stats endpoint.
type GalleryStats struct {
	Photos       int   `json:"photos"`
	Faces        int   `json:"faces"`
	Clusters     int   `json:"clusters"`
	Favorites    int   `json:"favorites"`
	Detections   int   `json:"detections"`
	Categories   int   `json:"categories"`
	StorageBytes int64 `json:"storage_bytes"`
}
