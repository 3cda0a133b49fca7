package nn

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// DefaultNmsIouThreshold is the greedy-suppression IoU threshold used when
// the caller doesn't override it (§4.1).
const DefaultNmsIouThreshold = 0.45

// Box is the minimal shape NMS needs: a box, a score and a class id.
// Detections of different class ids never suppress each other.
type Box struct {
	X1, Y1, X2, Y2 float32
	Score          float32
	ClassID        int
}

// NMS runs greedy IoU suppression per class id, sorted by descending score.
// The returned indices (into boxes) are sorted by score, and form the kept
// set — order within a class is irrelevant to the output set, but we return
// score-sorted indices for deterministic behaviour.
//
// A flatbush spatial index narrows the O(n^2) pairwise IoU comparisons to
// only the boxes that actually overlap in screen space, the same technique
// the teacher's pkg/nn/merge.go uses to dedupe detections.
func NMS(boxes []Box, iouThreshold float32) []int {
	n := len(boxes)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return boxes[order[a]].Score > boxes[order[b]].Score
	})

	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(n)
	for _, b := range boxes {
		fb.Add(int32(b.X1), int32(b.Y1), int32(b.X2), int32(b.Y2))
	}
	fb.Finish()

	suppressed := make([]bool, n)
	kept := make([]int, 0, n)

	for _, i := range order {
		if suppressed[i] {
			continue
		}
		kept = append(kept, i)
		bi := boxes[i]
		for _, j := range fb.Search(int32(bi.X1), int32(bi.Y1), int32(bi.X2), int32(bi.Y2)) {
			if j == i || suppressed[j] || boxes[j].ClassID != bi.ClassID {
				continue
			}
			if iou(bi, boxes[j]) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

func iou(a, b Box) float32 {
	x1 := maxF(a.X1, b.X1)
	y1 := maxF(a.Y1, b.Y1)
	x2 := minF(a.X2, b.X2)
	y2 := minF(a.Y2, b.Y2)
	interW := maxF(0, x2-x1)
	interH := maxF(0, y2-y1)
	inter := interW * interH
	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxF(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
