package vision

import (
	"context"

	"facearchiver/internal/models"
)

// Detector finds faces in raw image bytes and returns their bounding
// rectangles in the order the backend reported them.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.Region, error)
}

// Vertex is one corner of a bounding polygon in pixel coordinates.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingPoly is the polygon the service draws around a detected face.
// Vertices are listed clockwise starting from the top-left corner.
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// FaceAnnotation is one face result from the detection service.
type FaceAnnotation struct {
	BoundingPoly BoundingPoly `json:"boundingPoly"`
	Confidence   float64      `json:"detectionConfidence"`
}

type detectResponse struct {
	Faces []FaceAnnotation `json:"faces"`
}
