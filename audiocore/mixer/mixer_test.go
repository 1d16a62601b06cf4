package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sooth/audio-capture-library/audiocore"
)

type fakeCollector struct {
	buffers [][]float32
	format  audiocore.AudioFormat
}

func (f *fakeCollector) Buffers() [][]float32             { return f.buffers }
func (f *fakeCollector) FrameCounts() []int                { return nil }
func (f *fakeCollector) TargetFormat() audiocore.AudioFormat { return f.format }

// S6 — mixing two equal-length sources yields the exact 0.5/0.5 blend.
func TestMix50_50EqualLength(t *testing.T) {
	output := &fakeCollector{buffers: [][]float32{{1, 1, 1, 1}}}
	input := &fakeCollector{buffers: [][]float32{{0, 0, 0, 0}}}

	got := Mix(output, input)
	want := []float32{0.5, 0.5, 0.5, 0.5}
	assert.Equal(t, want, got)
}

func TestMixZeroPadsShorterInput(t *testing.T) {
	output := &fakeCollector{buffers: [][]float32{{1, 1, 1, 1}}}
	input := &fakeCollector{buffers: [][]float32{{1, 1}}}

	got := Mix(output, input)
	want := []float32{1, 1, 0.5, 0.5}
	assert.Equal(t, want, got)
}

func TestMixFallsBackToUnmixedWhenOneSourceEmpty(t *testing.T) {
	output := &fakeCollector{buffers: [][]float32{{1, 2, 3}}}
	input := &fakeCollector{}

	assert.Equal(t, []float32{1, 2, 3}, Mix(output, input))
	assert.Equal(t, []float32{1, 2, 3}, Mix(input, output))
}

func TestMixBothEmpty(t *testing.T) {
	assert.Empty(t, Mix(&fakeCollector{}, &fakeCollector{}))
}
