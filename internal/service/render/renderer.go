// Package render draws detections onto JPEG frames using OpenCV.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"petwatch/internal/model"
	"petwatch/internal/service/palette"
)

const (
	fontScale = 0.6
	thickness = 2
)

var black = color.RGBA{A: 255}

// Renderer annotates frames with boxes and labels.
type Renderer struct {
	palette *palette.Palette
	quality int
}

// NewRenderer creates a renderer encoding JPEGs at quality (1-100).
func NewRenderer(p *palette.Palette, quality int) *Renderer {
	return &Renderer{palette: p, quality: quality}
}

// Annotate draws every detection on the frame and returns a re-encoded JPEG buffer.
func (r *Renderer) Annotate(frame []byte, detections []model.Detection) ([]byte, error) {
	mat, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	for _, detection := range detections {
		if err := r.draw(&mat, detection); err != nil {
			return nil, err
		}
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), r.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// draw renders one box with a filled label band above it.
func (r *Renderer) draw(mat *gocv.Mat, detection model.Detection) error {
	c := r.palette.Color(detection.Label)
	box := detection.Region.Canon()

	if err := gocv.Rectangle(mat, box, c, thickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	label := fmt.Sprintf("%s %.0f%%", detection.Label, detection.Confidence*100)
	size, baseline := gocv.GetTextSizeWithBaseline(label, gocv.FontHersheySimplex, fontScale, thickness)

	band := image.Rect(box.Min.X, box.Min.Y-size.Y-baseline-8, box.Min.X+size.X+8, box.Min.Y)
	if err := gocv.Rectangle(mat, band, c, -1); err != nil {
		return fmt.Errorf("failed to draw label band: %w", err)
	}

	pt := image.Pt(box.Min.X+4, box.Min.Y-baseline-4)
	if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, fontScale, black, thickness); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}
