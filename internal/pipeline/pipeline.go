package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"facearchiver/internal/logger"
	"facearchiver/internal/models"
	"facearchiver/internal/preview"
	"facearchiver/internal/vision"
)

var (
	green = color.RGBA{G: 255}
	black = color.RGBA{}
)

// Crop is the extracted sub-image for one detected region. Its coordinates
// are copied from the source region and never recomputed.
type Crop struct {
	Frame  gocv.Mat
	X      int
	Y      int
	Width  int
	Height int
}

// Pipeline carries a single image through detect, crop, annotate and
// archive. An instance is built for one run and is not safe for concurrent
// use; repeated or overlapping runs each need their own Pipeline.
type Pipeline struct {
	imagePath  string
	archiveDir string
	debug      bool

	prefix string
	frame  gocv.Mat
	items  []models.Region
	crops  []*Crop

	detector vision.Detector
	log      *logger.Logger
}

// New loads the image at imagePath into the pipeline's frame buffer. The
// run prefix is captured here so every file archived by this instance shares
// it. Following the codec's convention, a missing or undecodable file leaves
// the frame empty rather than failing; the empty frame then flows through
// the remaining stages.
func New(imagePath, archiveDir string, debug bool, detector vision.Detector, log *logger.Logger) *Pipeline {
	log.Info("Image: %s", imagePath)

	p := &Pipeline{
		imagePath:  imagePath,
		archiveDir: archiveDir,
		debug:      debug,
		prefix:     runPrefix(time.Now()),
		detector:   detector,
		log:        log,
	}

	p.frame = gocv.IMRead(imagePath, gocv.IMReadColor)
	if p.frame.Empty() {
		log.Warning("Could not decode image: %s", imagePath)
	}

	if p.debug {
		preview.Show("preview", p.frame)
	}
	return p
}

// runPrefix formats t as YYYYMMDD-HHMMSS-ffffff. Microsecond granularity
// keeps repeated runs from colliding in the archive directory.
func runPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%06d", t.Format("20060102-150405"), t.Nanosecond()/1000)
}

// Prefix returns the run prefix shared by all files this pipeline archives.
func (p *Pipeline) Prefix() string {
	return p.prefix
}

// Items returns the detected face regions from the last FindItems call.
func (p *Pipeline) Items() []models.Region {
	return p.items
}

// FindItems sends the raw image bytes to the detection service and stores
// the returned face regions, replacing any previous list. The service reads
// the original file content, not the decoded frame.
func (p *Pipeline) FindItems(ctx context.Context) error {
	p.log.Info("Searching for faces...")

	content, err := os.ReadFile(p.imagePath)
	if err != nil {
		return fmt.Errorf("read image for detection: %w", err)
	}

	items, err := p.detector.Detect(ctx, content)
	if err != nil {
		return fmt.Errorf("detect faces: %w", err)
	}

	p.log.Info("Number of faces: %d", len(items))
	p.log.Info("Faces = %v", items)
	p.items = items
	return nil
}

// ExtractItemFrames cuts one crop out of the frame per detected region,
// replacing any previous crop list. Rectangles reaching past the frame edge
// are clamped to it; a region entirely outside yields an empty crop. With no
// detected regions the result is simply an empty list.
func (p *Pipeline) ExtractItemFrames() {
	p.log.Info("Extracting face crops (%d to extract)...", len(p.items))

	crops := make([]*Crop, 0, len(p.items))
	bounds := image.Rect(0, 0, p.frame.Cols(), p.frame.Rows())
	for _, it := range p.items {
		crop := &Crop{X: it.X, Y: it.Y, Width: it.Width, Height: it.Height}

		rect := image.Rect(it.X, it.Y, it.X+it.Width, it.Y+it.Height).Intersect(bounds)
		if rect.Empty() {
			crop.Frame = gocv.NewMat()
		} else {
			// Clone so later drawing on the full frame does not bleed
			// into archived crops.
			region := p.frame.Region(rect)
			crop.Frame = region.Clone()
			region.Close()
		}
		crops = append(crops, crop)
	}
	p.crops = crops
}

// ItemFrames returns the crop list. With grayscale set, each crop's buffer
// is first converted to single-channel gray in place. Crops that already
// have one channel are left alone, so calling this twice with grayscale set
// is a no-op the second time. Callers share the stored records either way.
func (p *Pipeline) ItemFrames(grayscale bool) ([]*Crop, error) {
	if !grayscale {
		return p.crops, nil
	}

	for _, crop := range p.crops {
		if crop.Frame.Empty() || crop.Frame.Channels() == 1 {
			continue
		}
		gray := gocv.NewMat()
		if err := gocv.CvtColor(crop.Frame, &gray, gocv.ColorBGRToGray); err != nil {
			gray.Close()
			return nil, fmt.Errorf("convert crop to grayscale: %w", err)
		}
		crop.Frame.Close()
		crop.Frame = gray
	}
	return p.crops, nil
}

// AddLabel draws text on the full frame next to a face rectangle. The label
// sits slightly above the given point unless that would push it off the top
// edge of the image.
func (p *Pipeline) AddLabel(text string, x, y int) error {
	if err := gocv.PutText(&p.frame, text, labelOrigin(x, y), gocv.FontHersheySimplex, 1.2, green, 4); err != nil {
		return fmt.Errorf("draw label: %w", err)
	}
	return nil
}

func labelOrigin(x, y int) image.Point {
	if y > 11 {
		y -= 5
	}
	return image.Pt(x+40, y)
}

// ArchiveItemFrames writes each crop to <archiveDir>/<prefix>_item_<N>.jpg
// with a zero-based index following list order.
func (p *Pipeline) ArchiveItemFrames() error {
	p.log.Info("Archiving face crops (%d to archive)...", len(p.crops))

	for idx, crop := range p.crops {
		name := fmt.Sprintf("%s_item_%d.jpg", p.prefix, idx)
		p.log.Info("Archiving a crop to file: %s", name)
		if ok := gocv.IMWrite(filepath.Join(p.archiveDir, name), crop.Frame); !ok {
			return fmt.Errorf("write crop file %s", name)
		}
	}
	return nil
}

// ArchiveWithItems draws a rectangle around every detected region on the
// full frame, stamps the current date and time, and writes the result to
// <archiveDir>/<prefix>_full.jpg.
func (p *Pipeline) ArchiveWithItems() error {
	p.log.Info("Archiving the frame with detected faces...")

	for _, it := range p.items {
		rect := image.Rect(it.X, it.Y, it.X+it.Width, it.Y+it.Height)
		if err := gocv.Rectangle(&p.frame, rect, green, 3); err != nil {
			return fmt.Errorf("draw face rectangle: %w", err)
		}
	}

	stamp := time.Now().Format(time.ANSIC)
	if err := gocv.PutText(&p.frame, stamp, image.Pt(5, 25), gocv.FontHersheySimplex, 0.8, black, 3); err != nil {
		return fmt.Errorf("draw timestamp: %w", err)
	}

	if p.debug {
		preview.Show("preview", p.frame)
	}

	name := fmt.Sprintf("%s_full.jpg", p.prefix)
	p.log.Info("Archive file is: %s", name)
	if ok := gocv.IMWrite(filepath.Join(p.archiveDir, name), p.frame); !ok {
		return fmt.Errorf("write annotated frame %s", name)
	}
	return nil
}

// AnnotatedJPEG encodes the current full frame as JPEG bytes, for the
// headless debug preview.
func (p *Pipeline) AnnotatedJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", p.frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the frame and all crop buffers.
func (p *Pipeline) Close() {
	for _, crop := range p.crops {
		crop.Frame.Close()
	}
	p.frame.Close()
}
