package nn

import "github.com/chewxy/math32"

// DflBins is the number of distribution bins (regression channels) per edge.
const DflBins = 16

// dflSharpen is the softmax sharpening factor applied before taking the
// weighted expectation (§4.1).
const dflSharpen = 5.0

// DecodeDflEdge reads DflBins consecutive logits starting at values[0] and
// returns the softmax(x*sharpen)-weighted expectation over [0..DflBins), the
// signed pixel distance from the cell anchor in this edge's direction
// (before multiplying by stride).
func DecodeDflEdge(values []float32) float32 {
	maxVal := values[0]
	for _, v := range values[1:DflBins] {
		if v > maxVal {
			maxVal = v
		}
	}

	var weightedSum, totalWeight float32
	for i := 0; i < DflBins; i++ {
		w := math32.Exp((values[i] - maxVal) * dflSharpen)
		weightedSum += w * float32(i)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// DecodeDflBox decodes the four edges (left, top, right, bottom) of one grid
// cell from the sequential layout [L0..L15, T0..T15, R0..R15, B0..B15] and
// returns the pixel distances from the cell anchor, already multiplied by
// stride.
func DecodeDflBox(cellValues []float32, stride float32) (left, top, right, bottom float32) {
	left = DecodeDflEdge(cellValues[0*DflBins:1*DflBins]) * stride
	top = DecodeDflEdge(cellValues[1*DflBins:2*DflBins]) * stride
	right = DecodeDflEdge(cellValues[2*DflBins:3*DflBins]) * stride
	bottom = DecodeDflEdge(cellValues[3*DflBins:4*DflBins]) * stride
	return
}

// Sigmoid applies the logistic function, used whenever a raw class or
// visibility value is found outside [0,1] (indicating it's a logit, not
// already a probability).
func Sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}

// SigmoidIfLogit returns x unchanged if it already looks like a probability
// (within [0,1]), otherwise applies the sigmoid.
func SigmoidIfLogit(x float32) float32 {
	if x < 0 || x > 1 {
		return Sigmoid(x)
	}
	return x
}
