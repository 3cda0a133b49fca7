package nnaccel

import (
	"strings"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// rawYoloScale describes one detection head's grid and the three output
// tensors (DFL regression, class logits, keypoint regression) that feed it.
type rawYoloScale struct {
	gridH, gridW int
	stride       float32
	dflIdx       int
	classIdx     int
	kpIdx        int
}

// yoloTensorTags maps the accelerator's tensor name tags to (scale index,
// head kind) — P3/conv43-45 (stride 8), P4/conv57-59 (stride 16),
// P5/conv70-72 (stride 32). Matching is substring-based on the tensor name,
// not output byte size, because class-channel counts can collide with
// other heads' sizes (§4.2.2).
var yoloTensorTags = []struct {
	tag        string
	scaleIndex int
	head       string // "dfl", "class", "kp"
}{
	{"conv43", 0, "dfl"}, {"conv44", 0, "class"}, {"conv45", 0, "kp"},
	{"conv57", 1, "dfl"}, {"conv58", 1, "class"}, {"conv59", 1, "kp"},
	{"conv70", 2, "dfl"}, {"conv71", 2, "class"}, {"conv72", 2, "kp"},
}

var yoloScaleGrids = []struct {
	gridH, gridW int
	stride       float32
}{
	{120, 120, 8},
	{60, 60, 16},
	{30, 30, 32},
}

// ParseRawYoloOutput decodes a 9-tensor multi-scale YOLOv8-style detection
// head (three scales, each DFL-regression + class + keypoint tensors),
// applies DFL box decode and per-cell greedy class selection, and runs NMS
// across the pooled candidates from every scale (§4.2.2). Returned
// detections carry bounding boxes in model-input pixel space.
func ParseRawYoloOutput(outputs []RawOutput, batchIdx int, desc *nn.ModelDescriptor, confThreshold float32) []nn.Detection {
	dflIdx := [3]int{-1, -1, -1}
	classIdx := [3]int{-1, -1, -1}
	kpIdx := [3]int{-1, -1, -1}

	for i, o := range outputs {
		for _, tag := range yoloTensorTags {
			if strings.Contains(o.Name, tag.tag) {
				switch tag.head {
				case "dfl":
					dflIdx[tag.scaleIndex] = i
				case "class":
					classIdx[tag.scaleIndex] = i
				case "kp":
					kpIdx[tag.scaleIndex] = i
				}
			}
		}
	}

	var scales []rawYoloScale
	for s := 0; s < 3; s++ {
		if dflIdx[s] >= 0 && classIdx[s] >= 0 {
			scales = append(scales, rawYoloScale{
				gridH: yoloScaleGrids[s].gridH, gridW: yoloScaleGrids[s].gridW, stride: yoloScaleGrids[s].stride,
				dflIdx: dflIdx[s], classIdx: classIdx[s], kpIdx: kpIdx[s],
			})
		}
	}
	if len(scales) == 0 {
		return nil
	}

	numClasses := desc.NumClasses
	if numClasses == 0 {
		numClasses = 13
	}
	numKeypoints := desc.NumKeypoints

	var boxes []nn.Box
	type kpSet struct {
		kps []nn.Keypoint
	}
	var allKps []kpSet

	for _, sc := range scales {
		dflData := perBatchSlice(outputs[sc.dflIdx], batchIdx)
		classData := perBatchSlice(outputs[sc.classIdx], batchIdx)
		var kpData []float32
		if sc.kpIdx >= 0 {
			kpData = perBatchSlice(outputs[sc.kpIdx], batchIdx)
		}

		for gy := 0; gy < sc.gridH; gy++ {
			for gx := 0; gx < sc.gridW; gx++ {
				pixelIdx := gy*sc.gridW + gx
				dflBase := pixelIdx * 4 * nn.DflBins
				classBase := pixelIdx * numClasses

				if classBase+numClasses > len(classData) {
					continue
				}

				maxScore := float32(0)
				bestClass := 0
				for c := 0; c < numClasses; c++ {
					score := nn.SigmoidIfLogit(classData[classBase+c])
					if score > maxScore {
						maxScore = score
						bestClass = c
					}
				}
				if maxScore < confThreshold {
					continue
				}
				if dflBase+4*nn.DflBins > len(dflData) {
					continue
				}

				left, top, right, bottom := nn.DecodeDflBox(dflData[dflBase:dflBase+4*nn.DflBins], 1.0)

				anchorX := (float32(gx) + 0.5) * sc.stride
				anchorY := (float32(gy) + 0.5) * sc.stride
				x1 := anchorX - left*sc.stride
				y1 := anchorY - top*sc.stride
				x2 := anchorX + right*sc.stride
				y2 := anchorY + bottom*sc.stride

				if x2 <= 0 || y2 <= 0 || x1 >= float32(desc.InputW) || y1 >= float32(desc.InputH) || x2-x1 <= 0 || y2-y1 <= 0 {
					continue
				}

				boxes = append(boxes, nn.Box{X1: x1, Y1: y1, X2: x2, Y2: y2, Score: maxScore, ClassID: bestClass})

				var kps []nn.Keypoint
				if kpData != nil && numKeypoints > 0 {
					kpBase := pixelIdx * numKeypoints * 3
					for k := 0; k < numKeypoints; k++ {
						off := kpBase + k*3
						if off+3 > len(kpData) {
							break
						}
						kpXRaw := kpData[off+0]
						kpYRaw := kpData[off+1]
						kpVis := nn.SigmoidIfLogit(kpData[off+2])
						kpX := (float32(gx) + kpXRaw*2.0) * sc.stride
						kpY := (float32(gy) + kpYRaw*2.0) * sc.stride
						kps = append(kps, nn.Keypoint{X: kpX, Y: kpY, V: kpVis})
					}
				}
				allKps = append(allKps, kpSet{kps: kps})
			}
		}
	}

	if len(boxes) == 0 {
		return nil
	}

	kept := nn.NMS(boxes, nn.DefaultNmsIouThreshold)

	out := make([]nn.Detection, 0, len(kept))
	for _, idx := range kept {
		b := boxes[idx]
		det := nn.Detection{
			ClassID:    uint16(b.ClassID),
			ClassName:  desc.ClassName(b.ClassID),
			Confidence: b.Score,
			BBox: nn.BoundingBox{
				X:      int(b.X1),
				Y:      int(b.Y1),
				Width:  int(b.X2 - b.X1),
				Height: int(b.Y2 - b.Y1),
			},
			Keypoints: allKps[idx].kps,
		}
		out = append(out, det)
	}
	return out
}

// perBatchSlice returns the slice of o.Data belonging to batch element
// batchIdx, assuming Shape[0] is the batch dimension (or the whole tensor,
// if Shape doesn't declare one — single-frame RunSingle calls).
func perBatchSlice(o RawOutput, batchIdx int) []float32 {
	if len(o.Shape) == 0 || o.Shape[0] <= 1 {
		return o.Data
	}
	per := len(o.Data) / o.Shape[0]
	start := batchIdx * per
	if start+per > len(o.Data) {
		return nil
	}
	return o.Data[start : start+per]
}
