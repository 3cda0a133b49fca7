package nn

// LetterboxInfo is the affine mapping between model-input pixels and the
// original frame's pixels: orig = (model - pad) / scale.
type LetterboxInfo struct {
	Scale float32
	PadX  int
	PadY  int
	NewW  int
	NewH  int
}

// DefaultPadValue is the grey fill value used for letterbox padding and for
// neutral batch-padding frames (§4.1, §4.3).
const DefaultPadValue = 114

// Letterbox computes the aspect-preserving resize-and-pad mapping from a
// source image of size srcW x srcH into a target of size dstW x dstH, and
// writes the resampled, padded image into dst (which must be dstW*dstH*3
// bytes, RGB). src must be srcW*srcH*3 bytes, RGB.
func Letterbox(src []byte, srcW, srcH int, dst []byte, dstW, dstH int) LetterboxInfo {
	scale := minF(float32(dstW)/float32(srcW), float32(dstH)/float32(srcH))
	newW := int(float32(srcW) * scale)
	newH := int(float32(srcH) * scale)
	padX := (dstW - newW) / 2
	padY := (dstH - newH) / 2

	info := LetterboxInfo{Scale: scale, PadX: padX, PadY: padY, NewW: newW, NewH: newH}

	for i := 0; i < len(dst); i++ {
		dst[i] = DefaultPadValue
	}

	for dy := 0; dy < newH; dy++ {
		sy := mapCoord(dy, newH, srcH)
		dstRow := (dy + padY) * dstW * 3
		srcRow := sy * srcW * 3
		for dx := 0; dx < newW; dx++ {
			sx := mapCoord(dx, newW, srcW)
			di := dstRow + (dx+padX)*3
			si := srcRow + sx*3
			dst[di+0] = src[si+0]
			dst[di+1] = src[si+1]
			dst[di+2] = src[si+2]
		}
	}

	return info
}

// mapCoord maps a destination index in [0,newDim) back to a source index in
// [0,srcDim), nearest-neighbour, clamped.
func mapCoord(dstIdx, newDim, srcDim int) int {
	if newDim <= 0 {
		return 0
	}
	s := dstIdx * srcDim / newDim
	if s < 0 {
		return 0
	}
	if s > srcDim-1 {
		return srcDim - 1
	}
	return s
}

// ToOriginal maps a point in model-input pixel space back to the original
// frame's pixel space, using the inverse letterbox map.
func (l LetterboxInfo) ToOriginal(x, y float32) (float32, float32) {
	if l.Scale == 0 {
		return x, y
	}
	return (x - float32(l.PadX)) / l.Scale, (y - float32(l.PadY)) / l.Scale
}

// ToOriginalBox maps a box in model-input pixel space back to original-frame
// pixel space.
func (l LetterboxInfo) ToOriginalBox(x1, y1, x2, y2 float32) (float32, float32, float32, float32) {
	ox1, oy1 := l.ToOriginal(x1, y1)
	ox2, oy2 := l.ToOriginal(x2, y2)
	return ox1, oy1, ox2, oy2
}

func minF(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
