package wakeword

import (
	"encoding/binary"
	"time"
)

// Shapes of the openWakeWord models.
const (
	sampleRate    = 16000
	chunkSamples  = 1280 // 80 ms
	melWindowSize = 76   // mel frames per embedding
	melStepSize   = 8    // mel frames between embeddings
	melBins       = 32
	nMelFrames    = 5 // mel frames per chunk
	embeddingDim  = 96
	nEmbedFrames  = 16 // embeddings per wakeword score

	// Only the newest recentWindow embeddings are scored; older slots
	// are zeroed so silence cannot drag the score down.
	recentWindow = 5

	// The trigger fires on the max of this many recent scores (~400 ms),
	// since the peak may land a frame early or late.
	scoreWindowSize = 5
)

// decodePCM reads 16-bit little-endian samples. A trailing odd byte is
// dropped.
func decodePCM(raw []byte) []int16 {
	n := len(raw) / 2
	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm
}

// chunker regroups device frames of any size into fixed model chunks.
type chunker struct {
	size int
	rem  []int16
}

func newChunker(size int) *chunker {
	return &chunker{size: size, rem: make([]int16, 0, size*2)}
}

// push appends samples and returns every complete chunk.
func (c *chunker) push(frame []int16) [][]int16 {
	c.rem = append(c.rem, frame...)
	var out [][]int16
	for len(c.rem) >= c.size {
		chunk := make([]int16, c.size)
		copy(chunk, c.rem)
		n := copy(c.rem, c.rem[c.size:])
		c.rem = c.rem[:n]
		out = append(out, chunk)
	}
	return out
}

func (c *chunker) reset() { c.rem = c.rem[:0] }

// features holds the rolling mel and embedding buffers between model
// runs.
type features struct {
	mel   []float32
	embed []float32
}

func newFeatures() *features {
	return &features{
		mel:   make([]float32, 0, 300*melBins),
		embed: make([]float32, nEmbedFrames*embeddingDim),
	}
}

// pushMel appends raw melspectrogram output, rescaled the way the
// embedding model was trained.
func (f *features) pushMel(raw []float32) {
	for _, v := range raw {
		f.mel = append(f.mel, v/10+2)
	}
}

// embedWindows runs fn over every complete mel window, slides each result into
// the embedding buffer and reports whether any were added.
func (f *features) embedWindows(fn func(window []float32) ([]float32, error)) (bool, error) {
	added := false
	for len(f.mel)/melBins >= melWindowSize {
		out, err := fn(f.mel[:melWindowSize*melBins])
		if err != nil {
			return added, err
		}
		copy(f.embed, f.embed[embeddingDim:])
		copy(f.embed[(nEmbedFrames-1)*embeddingDim:], out[:embeddingDim])
		added = true

		n := copy(f.mel, f.mel[melStepSize*melBins:])
		f.mel = f.mel[:n]
	}
	return added, nil
}

// scoreInput fills dst with the embedding buffer, zeroing all but the
// newest recentWindow slots.
func (f *features) scoreInput(dst []float32) {
	pad := (nEmbedFrames - recentWindow) * embeddingDim
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	copy(dst[pad:], f.embed[pad:])
}

func (f *features) reset() {
	f.mel = f.mel[:0]
	for i := range f.embed {
		f.embed[i] = 0
	}
}

// trigger turns a stream of scores into detections.
type trigger struct {
	threshold float32
	cooldown  time.Duration
	window    []float32
	idx       int
	last      time.Time
}

func newTrigger(threshold float32, cooldown time.Duration) *trigger {
	return &trigger{threshold: threshold, cooldown: cooldown, window: make([]float32, scoreWindowSize)}
}

// observe records a score and reports whether the wake word fired. The
// window is cleared on a detection so one peak fires once.
func (t *trigger) observe(score float32, now time.Time) bool {
	t.window[t.idx%len(t.window)] = score
	t.idx++

	if t.max() < t.threshold || (!t.last.IsZero() && now.Sub(t.last) <= t.cooldown) {
		return false
	}
	t.last = now
	t.clear()
	return true
}

func (t *trigger) max() float32 {
	var m float32
	for _, s := range t.window {
		if s > m {
			m = s
		}
	}
	return m
}

func (t *trigger) clear() {
	for i := range t.window {
		t.window[i] = 0
	}
	t.idx = 0
}
