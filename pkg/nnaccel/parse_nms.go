package nnaccel

import "github.com/ljj727/edge-core-hailo/pkg/nn"

// ParseNmsOutput decodes a Hailo-style NMS output tensor: num_classes *
// max_bboxes_per_class detection slots, each [y_min, x_min, y_max, x_max,
// score, (keypoints...)] with box coordinates normalised to [0,1] (§4.2.1).
// Returned detections carry bounding boxes in model-input pixel space — the
// caller (Engine) maps them back to original-frame coordinates.
func ParseNmsOutput(outputs []RawOutput, batchIdx int, desc *nn.ModelDescriptor, confThreshold float32) []nn.Detection {
	if len(outputs) == 0 {
		return nil
	}
	data := outputs[0].Data

	totalSlots := desc.NumClasses * desc.MaxBBoxesPerClass
	if totalSlots == 0 {
		return nil
	}
	perBatchFloats := len(data)
	if len(outputs[0].Shape) >= 1 && outputs[0].Shape[0] > 1 {
		perBatchFloats /= outputs[0].Shape[0]
	}
	batchData := data
	if perBatchFloats < len(data) {
		start := batchIdx * perBatchFloats
		if start+perBatchFloats > len(data) {
			return nil
		}
		batchData = data[start : start+perBatchFloats]
	}

	numFloats := len(batchData)
	actualDetParams := 0
	if totalSlots > 0 {
		actualDetParams = numFloats / totalSlots
	}
	keypointParams := 0
	if desc.Task == nn.TaskPose {
		keypointParams = desc.NumKeypoints * 3
	}
	expectedDetParams := 5 + keypointParams
	detParams := expectedDetParams
	if actualDetParams > 0 && actualDetParams != expectedDetParams {
		detParams = actualDetParams
	}

	var out []nn.Detection
	for cls := 0; cls < desc.NumClasses; cls++ {
		for i := 0; i < desc.MaxBBoxesPerClass; i++ {
			detOffset := (cls*desc.MaxBBoxesPerClass + i) * detParams
			if detOffset+5 > numFloats {
				break
			}

			yMin := batchData[detOffset+0]
			xMin := batchData[detOffset+1]
			yMax := batchData[detOffset+2]
			xMax := batchData[detOffset+3]
			score := batchData[detOffset+4]
			if score < confThreshold {
				continue
			}

			x1 := xMin * float32(desc.InputW)
			y1 := yMin * float32(desc.InputH)
			x2 := xMax * float32(desc.InputW)
			y2 := yMax * float32(desc.InputH)
			if x2 <= x1 || y2 <= y1 {
				continue
			}

			det := nn.Detection{
				ClassID:    uint16(cls),
				ClassName:  desc.ClassName(cls),
				Confidence: score,
				BBox: nn.BoundingBox{
					X:      int(x1),
					Y:      int(y1),
					Width:  int(x2 - x1),
					Height: int(y2 - y1),
				},
			}

			if desc.Task == nn.TaskPose && desc.NumKeypoints > 0 {
				for k := 0; k < desc.NumKeypoints; k++ {
					kpOffset := detOffset + 5 + k*3
					if kpOffset+3 > numFloats {
						break
					}
					kpx := batchData[kpOffset+0] * float32(desc.InputW)
					kpy := batchData[kpOffset+1] * float32(desc.InputH)
					kpv := nn.SigmoidIfLogit(batchData[kpOffset+2])
					det.Keypoints = append(det.Keypoints, nn.Keypoint{X: kpx, Y: kpy, V: kpv})
				}
			}

			out = append(out, det)
		}
	}
	return out
}
