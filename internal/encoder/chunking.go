package encoder

// GetOutputLength computes the flat post-conv sequence length produced by
// stitching per-chunk valid lengths back together, per spec §4.3's
// getOutputLength formula. nWindow is the half-chunk frame count (chunks
// are n_window*2 frames wide before the conv stack).
func GetOutputLength(t, nWindow int) int {
	chunk := nWindow * 2
	if chunk == 0 {
		return 0
	}
	rem := t % chunk

	fl := rem
	for i := 0; i < 3; i++ {
		fl = (fl-1)/2 + 1
	}

	fullTokens := (t / chunk) * 13
	remTokens := 0
	if rem > 0 {
		remTokens = fl
		if remTokens < 1 {
			remTokens = 1
		}
	}
	return fullTokens + remTokens
}

// windowOffsets re-chunks a flat sequence of length seqLen into windows of
// size windowLen, returning the [start, end) bounds of each window
// (spec §4.3: "re-chunked into windows of length
// max_cnn_per_chunk*(n_window_infer/(n_window*2))").
func windowOffsets(seqLen, windowLen int) [][2]int {
	if windowLen <= 0 {
		return [][2]int{{0, seqLen}}
	}
	var windows [][2]int
	for start := 0; start < seqLen; start += windowLen {
		end := start + windowLen
		if end > seqLen {
			end = seqLen
		}
		windows = append(windows, [2]int{start, end})
	}
	return windows
}

// BuildBlockDiagonalMask returns an additive [seqLen][seqLen] attention
// mask that is 0 within a window and -1e9 across windows, used by every
// encoder layer (spec §4.3).
func BuildBlockDiagonalMask(seqLen, windowLen int) [][]float32 {
	windows := windowOffsets(seqLen, windowLen)
	windowOf := make([]int, seqLen)
	for wi, w := range windows {
		for i := w[0]; i < w[1]; i++ {
			windowOf[i] = wi
		}
	}

	mask := make([][]float32, seqLen)
	for i := range mask {
		mask[i] = make([]float32, seqLen)
		for j := range mask[i] {
			if windowOf[i] != windowOf[j] {
				mask[i][j] = -1e9
			}
		}
	}
	return mask
}

// InferenceWindowLength computes the window length used to re-chunk the
// flat post-conv sequence for attention (spec §4.3).
func InferenceWindowLength(maxCNNPerChunk, nWindow, nWindowInfer int) int {
	if nWindow == 0 {
		return maxCNNPerChunk
	}
	return maxCNNPerChunk * (nWindowInfer / (nWindow * 2))
}
