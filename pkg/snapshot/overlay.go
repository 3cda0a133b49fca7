package snapshot

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// Overlay draws detections and rule geometry onto an RGB frame before
// encoding, gated behind config.publish_overlay — grounded on the
// teacher's debug dump of crops (pkg/nn/tiled.go's dumpTile) generalized
// from a raw file dump to an in-memory annotation pass.
type Overlay struct {
	BoxColor      color.Color
	KeypointColor color.Color
	RuleColor     color.Color
	LineWidth     float64
}

func NewOverlay() *Overlay {
	return &Overlay{
		BoxColor:      color.RGBA{R: 0, G: 255, B: 0, A: 255},
		KeypointColor: color.RGBA{R: 255, G: 255, B: 0, A: 255},
		RuleColor:     color.RGBA{R: 255, G: 0, B: 0, A: 255},
		LineWidth:     2,
	}
}

// Draw rasterizes detections (bboxes + keypoints) and every ROI/Line rule
// the compositor knows about onto rgb (width x height, 3 bytes/pixel,
// row-major) and returns a new RGB buffer of the same dimensions.
func (o *Overlay) Draw(rgb []byte, width, height int, detections []nn.Detection, rules []eventrule.Rule) []byte {
	dc := gg.NewContext(width, height)
	dc.DrawImage(rgbToImage(rgb, width, height), 0, 0)
	dc.SetLineWidth(o.LineWidth)

	for _, r := range rules {
		o.drawRule(dc, r, width, height)
	}
	for _, d := range detections {
		o.drawDetection(dc, d, width, height)
	}

	return imageToRGB(dc.Image(), width, height)
}

// drawDetection draws d's bbox in pixel space and its keypoints — which,
// per nn.Keypoint's doc comment, are normalised to [0,1]^2 in the original
// frame rather than relative to the bbox — scaled by the frame dimensions,
// consistent with eventrule/line.go's treatment of the same field.
func (o *Overlay) drawDetection(dc *gg.Context, d nn.Detection, width, height int) {
	dc.SetColor(o.BoxColor)
	dc.DrawRectangle(float64(d.BBox.X), float64(d.BBox.Y), float64(d.BBox.Width), float64(d.BBox.Height))
	dc.Stroke()

	dc.SetColor(o.KeypointColor)
	for _, kp := range d.Keypoints {
		if kp.V < 0.3 {
			continue
		}
		x := float64(kp.X) * float64(width)
		y := float64(kp.Y) * float64(height)
		dc.DrawCircle(x, y, 3)
		dc.Fill()
	}
}

func (o *Overlay) drawRule(dc *gg.Context, r eventrule.Rule, width, height int) {
	dc.SetColor(o.RuleColor)
	switch r.Type {
	case eventrule.TypeROI:
		if len(r.Points) < 3 {
			return
		}
		dc.MoveTo(float64(r.Points[0].X)*float64(width), float64(r.Points[0].Y)*float64(height))
		for _, p := range r.Points[1:] {
			dc.LineTo(float64(p.X)*float64(width), float64(p.Y)*float64(height))
		}
		dc.ClosePath()
		dc.Stroke()
	case eventrule.TypeLine:
		if len(r.Points) < 2 {
			return
		}
		dc.DrawLine(
			float64(r.Points[0].X)*float64(width), float64(r.Points[0].Y)*float64(height),
			float64(r.Points[1].X)*float64(width), float64(r.Points[1].Y)*float64(height),
		)
		dc.Stroke()
	}
}

func rgbToImage(rgb []byte, width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			if i+2 >= len(rgb) {
				continue
			}
			img.Set(x, y, color.RGBA{R: rgb[i], G: rgb[i+1], B: rgb[i+2], A: 255})
		}
	}
	return img
}

func imageToRGB(img image.Image, width, height int) []byte {
	out := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			i := (y*width + x) * 3
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
		}
	}
	return out
}
