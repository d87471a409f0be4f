package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	boxColor   = color.RGBA{G: 255}
	labelColor = color.RGBA{R: 255, G: 255, B: 255}
)

// Preview renders annotated frames in a window. Closing happens through the
// tracker's render callback returning false when the user presses q.
type Preview struct {
	window *gocv.Window
}

// NewPreview opens the preview window.
func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title)}
}

// Render draws bounding boxes, identity labels, and a status line onto the
// frame and displays it. Returns false when the user asked to quit.
func (p *Preview) Render(frame image.Image, labels []Label, totalIdentities int) (bool, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return false, fmt.Errorf("converting frame for preview: %w", err)
	}
	defer mat.Close()

	for _, label := range labels {
		r := label.Region
		gocv.Rectangle(&mat, image.Rect(r.Left, r.Top, r.Right, r.Bottom), boxColor, 2)
		gocv.Rectangle(&mat, image.Rect(r.Left, r.Bottom-35, r.Right, r.Bottom), boxColor, -1)
		gocv.PutText(&mat, label.Name, image.Pt(r.Left+6, r.Bottom-6),
			gocv.FontHersheyDuplex, 0.6, labelColor, 1)
	}

	info := fmt.Sprintf("Tracked Persons: %d | Press 'q' to quit", totalIdentities)
	gocv.PutText(&mat, info, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, labelColor, 2)

	p.window.IMShow(mat)
	if key := p.window.WaitKey(1); key == 'q' {
		return false, nil
	}
	return true, nil
}

// Close destroys the preview window.
func (p *Preview) Close() error {
	return p.window.Close()
}
