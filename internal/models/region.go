package models

// Region is an axis-aligned rectangle identifying a detected face in
// image-pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
