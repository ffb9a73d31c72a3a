/*
 * This file is part of voz.
 * Copyright (C) 2026 Voz Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package features runs the mel-spectrogram-then-embedding pipeline: it
// turns a live stream of PCM samples into a stream of 96-float embeddings,
// the input the wake-word detectors classify.
package features

import (
	"runtime"

	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/tflite"
)

const (
	// MelBins is the fixed width of one mel vector.
	MelBins = 32

	// MelRequiredRows is how many consecutive mel vectors the embedding
	// model is fed per invocation.
	MelRequiredRows = 76

	// EmbeddingSize is the width of one embedding the embedding model
	// emits.
	EmbeddingSize = 96

	// MaxErrorsAllowed is the accumulated-error budget before the
	// pipeline aborts.
	MaxErrorsAllowed = 10

	// xnnThreads is the thread count used when XNNPack is enabled.
	xnnThreads = 2

	// minCoresForXNN is the CPU count at or above which the embedding
	// model is run with XNNPack.
	minCoresForXNN = 3
)

// MelVector is one 32-wide row of mel-spectrogram output, already rescaled.
type MelVector [MelBins]float32

// Embedding is one 96-float output of the embedding model.
type Embedding [EmbeddingSize]float32

// rescale applies the fixed-point-matching affine shift the training
// pipeline expects: y = x*0.1 + 2.
func rescale(x float32) float32 {
	return x*0.1 + 2
}

// Input is the shared roll-buffer capture feeds this pipeline from,
// int16 PCM samples.
type Input = rollbuffer.Sync[int16]

// Output is the shared roll-buffer the wake-word stage reads embeddings
// from.
type Output = rollbuffer.Sync[Embedding]

// Pipeline owns the mel and embedding models and the scratch state a
// single feature-extraction thread advances one frame at a time. It is
// not safe for concurrent use — exactly one goroutine should call Run.
type Pipeline struct {
	melModel tflite.Model
	embModel tflite.Model

	melPerChunk int // M, probed from the mel model
	melPerFrame int // N = (frame/chunk) * M

	input  *Input
	output *Output

	melBuf       *rollbuffer.Buffer[MelVector]
	scratchInput []float32 // overlap+frame floats, refreshed each process_input

	errCount int
	stats    Stats
}

// Stats mirrors the per-thread counters spec.md §5 calls out as owned
// solely by the thread that updates them.
type Stats struct {
	FramesProcessed     int
	EmbeddingsProduced  int
	Errors              int
	Resets              int
}

// Config selects the two model files this pipeline loads.
type Config struct {
	MelModelPath       string
	EmbeddingModelPath string
	NumCPU             int // 0 means runtime.NumCPU()
}

// New loads both models and prepares a Pipeline reading from input and
// writing to output. input and output are not created here — capture and
// wakeword each own the buffer they hand off to their neighbor.
func New(cfg Config, input *Input, output *Output) (*Pipeline, error) {
	probeShape := []int{1, pcmaudio.OverlapSamples + pcmaudio.ChunkSamples}
	melModel, err := tflite.Load(cfg.MelModelPath, 1, false, probeShape)
	if err != nil {
		return nil, err
	}

	m := probeM(melModel)

	frameShape := []int{1, pcmaudio.OverlapSamples + pcmaudio.FrameSamples}
	if err := melModel.SetInputShape(frameShape); err != nil {
		melModel.Close()
		return nil, err
	}

	cores := cfg.NumCPU
	if cores == 0 {
		cores = runtime.NumCPU()
	}
	useXNN := cores >= minCoresForXNN
	threads := 1
	if useXNN {
		threads = xnnThreads
	}
	embModel, err := tflite.Load(cfg.EmbeddingModelPath, threads, useXNN, []int{1, MelRequiredRows, MelBins})
	if err != nil {
		melModel.Close()
		return nil, err
	}

	p := newPipeline(melModel, embModel, m, input, output)
	return p, nil
}

// NewFromModels builds a Pipeline from already-loaded models, skipping
// tflite.Load entirely — the seam pipeline tests use to drive a Pipeline
// with tflite.FakeModel.
func NewFromModels(melModel, embModel tflite.Model, input *Input, output *Output) *Pipeline {
	return newPipeline(melModel, embModel, probeM(melModel), input, output)
}

// newPipeline builds a Pipeline from already-loaded/configured models,
// letting tests inject tflite.FakeModel in place of cgo-backed runners.
func newPipeline(melModel, embModel tflite.Model, melPerChunk int, input *Input, output *Output) *Pipeline {
	n := pcmaudio.ChunksPerFrame * melPerChunk
	p := &Pipeline{
		melModel:    melModel,
		embModel:    embModel,
		melPerChunk: melPerChunk,
		melPerFrame: n,
		input:       input,
		output:      output,
		melBuf:      rollbuffer.New[MelVector]((MelRequiredRows - melPerChunk) + n),
	}
	p.warmMels()
	p.warmInput()
	return p
}

// probeM reads the mel model's per-chunk mel count off its output shape
// after allocating for a single-chunk input: a [batch, M, MelBins] tensor,
// M being the second-to-last dimension regardless of how many leading
// dimensions the model declares.
func probeM(model tflite.Model) int {
	shape := model.OutputShape()
	if len(shape) < 2 {
		return 1
	}
	m := shape[len(shape)-2]
	if m < 1 {
		return 1
	}
	return m
}

// warmMels (re)fills the mel buffer with (76-M) all-ones rows, the unit-mel
// warm-up the embedding model was trained expecting to see before the
// first real audio arrives.
func (p *Pipeline) warmMels() {
	p.melBuf.Reset()
	prefix := MelRequiredRows - p.melPerChunk
	if prefix < 0 {
		prefix = 0
	}
	ones := MelVector{}
	for i := range ones {
		ones[i] = 1
	}
	rows := make([]MelVector, prefix)
	for i := range rows {
		rows[i] = ones
	}
	p.melBuf.Append(rows)
}

// warmInput (re)builds the scratch input frame as overlap+frame zero
// samples. processInput overwrites the whole frame with real samples, and
// the shared input buffer is not prefilled, so the first frame's leading
// overlap is the first overlap_size real samples, not zeros.
func (p *Pipeline) warmInput() {
	p.scratchInput = make([]float32, pcmaudio.OverlapSamples+pcmaudio.FrameSamples)
}

// Close releases both models.
func (p *Pipeline) Close() error {
	err1 := p.melModel.Close()
	err2 := p.embModel.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
