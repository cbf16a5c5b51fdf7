package encoder

import "github.com/mandarin-voice/qwen3asr/internal/nn"

// Conv2D is a stride-2, pad-1, kernel-3 2D convolution over a
// [channels][height][width] volume — the shape the downsampler's three
// conv layers all share (spec §4.3).
type Conv2D struct {
	// Weight is [outChannels][inChannels][3][3].
	Weight [][][][]float32
	Bias   []float32
}

// Forward applies the convolution, halving height and width (rounding per
// the standard (in+2*pad-kernel)/stride+1 formula).
func (c Conv2D) Forward(input [][][]float32) [][][]float32 {
	inC := len(input)
	h := len(input[0])
	w := len(input[0][0])
	const pad, stride, kernel = 1, 2, 3

	outH := (h+2*pad-kernel)/stride + 1
	outW := (w+2*pad-kernel)/stride + 1
	outC := len(c.Weight)

	out := make([][][]float32, outC)
	for oc := 0; oc < outC; oc++ {
		out[oc] = make([][]float32, outH)
		for oy := 0; oy < outH; oy++ {
			out[oc][oy] = make([]float32, outW)
			for ox := 0; ox < outW; ox++ {
				var sum float32
				iy0 := oy*stride - pad
				ix0 := ox*stride - pad
				for ic := 0; ic < inC; ic++ {
					for ky := 0; ky < kernel; ky++ {
						iy := iy0 + ky
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < kernel; kx++ {
							ix := ix0 + kx
							if ix < 0 || ix >= w {
								continue
							}
							sum += c.Weight[oc][ic][ky][kx] * input[ic][iy][ix]
						}
					}
				}
				out[oc][oy][ox] = sum + c.Bias[oc]
			}
		}
	}
	return out
}

// Downsampler runs the three Conv2D+GELU stages and the following linear
// projection to d_model (spec §4.3: "reshaped to [B, T/8, C*(n_mels/8)] and
// linearly projected to d_model, no bias").
type Downsampler struct {
	Convs [3]Conv2D
	Proj  nn.Linear
}

// Forward takes mel features shaped [n_mels][T] and returns the projected
// sequence [T', d_model].
func (d Downsampler) Forward(mel [][]float32) [][]float32 {
	vol := [][][]float32{mel} // single input channel

	for _, conv := range d.Convs {
		vol = conv.Forward(vol)
		for c := range vol {
			for y := range vol[c] {
				nn.GELU(vol[c][y])
			}
		}
	}

	channels := len(vol)
	freqBins := len(vol[0])
	timeSteps := len(vol[0][0])

	flat := make([][]float32, timeSteps)
	for t := 0; t < timeSteps; t++ {
		row := make([]float32, channels*freqBins)
		idx := 0
		for c := 0; c < channels; c++ {
			for f := 0; f < freqBins; f++ {
				row[idx] = vol[c][f][t]
				idx++
			}
		}
		flat[t] = row
	}

	return d.Proj.Forward(flat)
}
