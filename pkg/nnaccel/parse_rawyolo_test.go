package nnaccel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

func TestParseRawYoloOutputDecodesOneConfidentCell(t *testing.T) {
	desc := &nn.ModelDescriptor{InputW: 960, InputH: 960, NumClasses: 2}

	gridH, gridW := 120, 120
	dfl := make([]float32, gridH*gridW*4*nn.DflBins)
	class := make([]float32, gridH*gridW*desc.NumClasses)

	gx, gy := 10, 10
	pixelIdx := gy*gridW + gx
	// Dominant class-1 logit at this cell.
	class[pixelIdx*desc.NumClasses+1] = 8.0
	// DFL: pick bin 4 for every edge so the box is centred on the cell and
	// each edge lies about 4 bins x stride 8 = 32 px from the centre.
	dflBase := pixelIdx * 4 * nn.DflBins
	for e := 0; e < 4; e++ {
		dfl[dflBase+e*nn.DflBins+4] = 10.0
	}

	outputs := []RawOutput{
		{Name: "conv43", Data: dfl},
		{Name: "conv44", Data: class},
	}

	dets := ParseRawYoloOutput(outputs, 0, desc, 0.5)
	require.NotEmpty(t, dets)
	require.Equal(t, uint16(1), dets[0].ClassID)
}

func TestParseRawYoloOutputReturnsNilWithNoRecognizedTensors(t *testing.T) {
	desc := &nn.ModelDescriptor{InputW: 960, InputH: 960, NumClasses: 2}
	dets := ParseRawYoloOutput([]RawOutput{{Name: "unrelated", Data: []float32{1, 2, 3}}}, 0, desc, 0.5)
	require.Nil(t, dets)
}
