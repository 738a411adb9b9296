package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"facearchiver/internal/config"
	"facearchiver/internal/logger"
	"facearchiver/internal/models"
)

type fakeDetector struct {
	regions []models.Region
	err     error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]models.Region, error) {
	return f.regions, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
}

// writeTestImage writes a 200x200 color JPEG and returns its path.
func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	frame := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()

	path := filepath.Join(dir, "source.jpg")
	require.True(t, gocv.IMWrite(path, frame), "write test image")
	return path
}

func newTestPipeline(t *testing.T, regions []models.Region) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	archiveDir := t.TempDir()
	path := writeTestImage(t, dir)

	p := New(path, archiveDir, false, &fakeDetector{regions: regions}, testLogger(t))
	t.Cleanup(p.Close)
	return p, archiveDir
}

func TestRunPrefix(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 123456789, time.UTC)
	assert.Equal(t, "20260102-150405-123456", runPrefix(at))
}

func TestFindItems_StoresRegionsInOrder(t *testing.T) {
	regions := []models.Region{
		{X: 10, Y: 10, Width: 40, Height: 40},
		{X: 100, Y: 100, Width: 30, Height: 30},
	}
	p, _ := newTestPipeline(t, regions)

	require.NoError(t, p.FindItems(context.Background()))
	assert.Equal(t, regions, p.Items())
}

func TestFindItems_DetectorFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir)
	p := New(path, dir, false, &fakeDetector{err: fmt.Errorf("quota exceeded")}, testLogger(t))
	defer p.Close()

	err := p.FindItems(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, p.Items())
}

func TestExtractItemFrames_CropPerRegion(t *testing.T) {
	regions := []models.Region{
		{X: 10, Y: 10, Width: 40, Height: 40},
		{X: 100, Y: 100, Width: 30, Height: 30},
	}
	p, _ := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(false)
	require.NoError(t, err)
	require.Len(t, crops, len(regions))
	for i, crop := range crops {
		assert.Equal(t, regions[i].X, crop.X)
		assert.Equal(t, regions[i].Y, crop.Y)
		assert.Equal(t, regions[i].Width, crop.Width)
		assert.Equal(t, regions[i].Height, crop.Height)
		assert.Equal(t, regions[i].Width, crop.Frame.Cols())
		assert.Equal(t, regions[i].Height, crop.Frame.Rows())
	}
}

func TestExtractItemFrames_NoRegions(t *testing.T) {
	p, archiveDir := newTestPipeline(t, nil)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(false)
	require.NoError(t, err)
	assert.Empty(t, crops)

	require.NoError(t, p.ArchiveItemFrames())
	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractItemFrames_ClampsToFrameBounds(t *testing.T) {
	// Region sticks out past the 200x200 frame on both axes.
	regions := []models.Region{{X: 180, Y: 180, Width: 40, Height: 40}}
	p, _ := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(false)
	require.NoError(t, err)
	require.Len(t, crops, 1)
	assert.Equal(t, 20, crops[0].Frame.Cols())
	assert.Equal(t, 20, crops[0].Frame.Rows())
	// Stored coordinates keep the region's values, not the clamped ones.
	assert.Equal(t, 180, crops[0].X)
	assert.Equal(t, 40, crops[0].Width)
}

func TestItemFrames_Grayscale(t *testing.T) {
	regions := []models.Region{{X: 10, Y: 10, Width: 40, Height: 40}}
	p, _ := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(false)
	require.NoError(t, err)
	assert.Equal(t, 3, crops[0].Frame.Channels())

	crops, err = p.ItemFrames(true)
	require.NoError(t, err)
	assert.Equal(t, 1, crops[0].Frame.Channels())
	assert.Equal(t, 10, crops[0].X)
	assert.Equal(t, 40, crops[0].Width)

	// Converting again is a no-op.
	crops, err = p.ItemFrames(true)
	require.NoError(t, err)
	assert.Equal(t, 1, crops[0].Frame.Channels())
}

func TestItemFrames_SharesStoredRecords(t *testing.T) {
	regions := []models.Region{{X: 10, Y: 10, Width: 40, Height: 40}}
	p, _ := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	first, err := p.ItemFrames(false)
	require.NoError(t, err)
	second, err := p.ItemFrames(false)
	require.NoError(t, err)
	assert.Same(t, first[0], second[0])
}

func TestLabelOrigin(t *testing.T) {
	tests := []struct {
		name string
		x, y int
		want image.Point
	}{
		{"near top edge keeps y", 10, 5, image.Pt(50, 5)},
		{"boundary y=11 keeps y", 10, 11, image.Pt(50, 11)},
		{"boundary y=12 shifts up", 10, 12, image.Pt(50, 7)},
		{"away from edge shifts up", 10, 50, image.Pt(50, 45)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labelOrigin(tt.x, tt.y))
		})
	}
}

func TestArchiveItemFrames_RoundTrip(t *testing.T) {
	regions := []models.Region{
		{X: 10, Y: 10, Width: 40, Height: 40},
		{X: 100, Y: 100, Width: 30, Height: 30},
	}
	p, archiveDir := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()
	require.NoError(t, p.ArchiveItemFrames())

	for i, region := range regions {
		path := filepath.Join(archiveDir, fmt.Sprintf("%s_item_%d.jpg", p.Prefix(), i))
		mat := gocv.IMRead(path, gocv.IMReadColor)
		require.False(t, mat.Empty(), "archived crop %d should decode", i)
		assert.Equal(t, region.Width, mat.Cols())
		assert.Equal(t, region.Height, mat.Rows())
		mat.Close()
	}
}

func TestArchiveWithItems_WritesAnnotatedFrame(t *testing.T) {
	regions := []models.Region{{X: 10, Y: 10, Width: 40, Height: 40}}
	p, archiveDir := newTestPipeline(t, regions)
	require.NoError(t, p.FindItems(context.Background()))
	require.NoError(t, p.ArchiveWithItems())

	path := filepath.Join(archiveDir, p.Prefix()+"_full.jpg")
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	require.False(t, mat.Empty())
	assert.Equal(t, 200, mat.Cols())
	assert.Equal(t, 200, mat.Rows())
}

func TestPipeline_EndToEnd(t *testing.T) {
	regions := []models.Region{
		{X: 10, Y: 10, Width: 40, Height: 40},
		{X: 100, Y: 100, Width: 30, Height: 30},
	}
	p, archiveDir := newTestPipeline(t, regions)

	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(true)
	require.NoError(t, err)
	require.Len(t, crops, 2)
	for _, crop := range crops {
		require.NoError(t, p.AddLabel("face", crop.X, crop.Y))
	}

	require.NoError(t, p.ArchiveItemFrames())
	require.NoError(t, p.ArchiveWithItems())

	for _, name := range []string{
		p.Prefix() + "_item_0.jpg",
		p.Prefix() + "_item_1.jpg",
		p.Prefix() + "_full.jpg",
	} {
		_, err := os.Stat(filepath.Join(archiveDir, name))
		assert.NoError(t, err, name)
	}
}

func TestNew_UndecodableImageLeavesFrameEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	p := New(path, dir, false, &fakeDetector{}, testLogger(t))
	defer p.Close()

	// The pipeline stays usable: an empty frame flows through the stages.
	require.NoError(t, p.FindItems(context.Background()))
	p.ExtractItemFrames()
	crops, err := p.ItemFrames(false)
	require.NoError(t, err)
	assert.Empty(t, crops)
}
