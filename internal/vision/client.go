package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"facearchiver/internal/logger"
	"facearchiver/internal/models"
)

const detectPath = "/v1/faces:detect"

var errDegeneratePolygon = errors.New("degenerate bounding polygon")

// Client talks to the remote face-detection service over HTTP. The service
// consumes raw image bytes and answers with a JSON list of face annotations.
type Client struct {
	http *resty.Client
	log  *logger.Logger
}

// NewClient creates a detection client for the given endpoint. The API key
// may be empty when the service does not require one.
func NewClient(endpoint, apiKey string, log *logger.Logger) *Client {
	http := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Content-Type", "application/octet-stream")
	if apiKey != "" {
		http.SetHeader("X-Api-Key", apiKey)
	}
	return &Client{http: http, log: log}
}

// Detect implements Detector. One synchronous call per invocation; failures
// are returned to the caller untouched, there is no retry.
func (c *Client) Detect(ctx context.Context, image []byte) ([]models.Region, error) {
	var out detectResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(image).
		SetResult(&out).
		Post(detectPath)
	if err != nil {
		return nil, fmt.Errorf("face detection request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("face detection service returned %s: %s", resp.Status(), resp.String())
	}

	regions := make([]models.Region, 0, len(out.Faces))
	for i, face := range out.Faces {
		region, err := regionFromPoly(face.BoundingPoly)
		if errors.Is(err, errDegeneratePolygon) {
			c.log.Warning("Skipping face %d: %v", i, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// regionFromPoly converts a bounding polygon into a rectangle. Vertex 0 is
// the top-left corner and vertex 2 the bottom-right one; responses that break
// that ordering fall back to the polygon's min/max extents.
func regionFromPoly(poly BoundingPoly) (models.Region, error) {
	if len(poly.Vertices) < 4 {
		return models.Region{}, fmt.Errorf("bounding polygon has %d vertices, expected at least 4", len(poly.Vertices))
	}

	tl, br := poly.Vertices[0], poly.Vertices[2]
	region := models.Region{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
	if region.Width > 0 && region.Height > 0 {
		return region, nil
	}

	minX, minY := poly.Vertices[0].X, poly.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range poly.Vertices[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	region = models.Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	if region.Width <= 0 || region.Height <= 0 {
		return models.Region{}, errDegeneratePolygon
	}
	return region, nil
}
