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

package webrtcapm

import "fmt"

// DSP is the sub-chunk processing contract a Processor drives. Runner is
// the cgo-backed implementation; internal/capture depends on this
// interface, not *Runner, so its tests run without the vendored library —
// the same seam internal/tflite.Model gives internal/features.
type DSP interface {
	// ProcessSubChunk runs in place over exactly SamplesPerSubChunk
	// samples and reports that sub-chunk's voice-activity bit.
	ProcessSubChunk(samples []int16) bool
	Close() error
}

// Runner is the cgo-backed DSP implementation.
type Runner struct {
	impl *binding
}

// New builds a Runner for cfg, first clamping NoiseLevel and AutoGain.
// Callers should check cfg.NeedsProcessor() themselves; New does not skip
// construction for a no-op configuration.
func New(cfg Config) (*Runner, error) {
	impl, err := newBinding(cfg.Clamp())
	if err != nil {
		return nil, fmt.Errorf("webrtcapm: %w", err)
	}
	return &Runner{impl: impl}, nil
}

func (r *Runner) ProcessSubChunk(samples []int16) bool {
	return r.impl.processSubChunk(samples)
}

func (r *Runner) Close() error { return r.impl.close() }

var _ DSP = (*Runner)(nil)

// Processor drives a DSP over a full capture chunk: a chunk is 1 to 8
// consecutive 10 ms sub-chunks, and ProcessChunk returns the aggregated
// VAD byte for all of them, MSB first.
type Processor struct {
	dsp DSP
}

// NewProcessor wraps an existing DSP (a *Runner in production, a
// *FakeDSP in tests).
func NewProcessor(dsp DSP) *Processor {
	return &Processor{dsp: dsp}
}

// ProcessChunk DSPs samples in place, sub-chunk by sub-chunk, and returns
// the packed VAD byte. len(samples) must be a positive multiple of
// SamplesPerSubChunk not exceeding MaxSubChunksPerChunk sub-chunks.
func (p *Processor) ProcessChunk(samples []int16) (byte, error) {
	if len(samples) == 0 || len(samples)%SamplesPerSubChunk != 0 {
		return 0, fmt.Errorf("webrtcapm: chunk length %d is not a multiple of %d", len(samples), SamplesPerSubChunk)
	}
	n := len(samples) / SamplesPerSubChunk
	if n > MaxSubChunksPerChunk {
		return 0, fmt.Errorf("webrtcapm: chunk has %d sub-chunks, max %d", n, MaxSubChunksPerChunk)
	}
	bits := make([]bool, n)
	for i := 0; i < n; i++ {
		sub := samples[i*SamplesPerSubChunk : (i+1)*SamplesPerSubChunk]
		bits[i] = p.dsp.ProcessSubChunk(sub)
	}
	return PackVAD(bits), nil
}

func (p *Processor) Close() error { return p.dsp.Close() }
