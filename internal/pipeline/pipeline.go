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

// Package pipeline wires capture, features and wake-word into the
// three-thread Detector described in spec.md §5, and capture alone into
// the single-thread Preprocessor, so voz-oww and voz-pre each get one
// object to start, stop and join.
package pipeline

import (
	"errors"
	"sync"

	"github.com/vozlabs/voz/internal/capture"
	"github.com/vozlabs/voz/internal/features"
	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/wakeword"
	"github.com/vozlabs/voz/internal/webrtcapm"
)

// pcmBufferSamples sizes the capture->features roll-buffer to
// frame+overlap+chunk, per spec.md §4.3, so the producer can always
// append one more chunk without blocking on the consumer's shift.
const pcmBufferSamples = pcmaudio.FrameSamples + pcmaudio.OverlapSamples + pcmaudio.ChunkSamples

// matchesCapacity is generous headroom for the main thread's
// wait_any-over-predictions consumer; a Detector normally drains matches
// as fast as they're produced.
const matchesCapacity = 32

// DetectorConfig configures a Detector's three stages.
type DetectorConfig struct {
	Source             capture.Source
	DSP                *webrtcapm.Processor
	ChunkTimeMs        int
	Sync               bool
	MelModelPath       string
	EmbeddingModelPath string
	NumCPU             int
	Models             []wakeword.Config
	Broadcast          bool
}

// Detector owns the capture, features and wake-word threads and the two
// roll-buffers between them, plus the shared control flags a signal
// handler drives.
type Detector struct {
	capture  *capture.Thread
	features *features.Pipeline
	wakeword *wakeword.Detector
	control  *capture.Control

	Matches *rollbuffer.Sync[wakeword.Match]
}

// NewDetector loads the mel, embedding and wake-word models and wires the
// three stages together. On error, any models already loaded are closed.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	matches := rollbuffer.NewSync[wakeword.Match](matchesCapacity, cfg.Broadcast)

	wwDetector, featsBuf, err := wakeword.New(cfg.Models, cfg.Broadcast, matches)
	if err != nil {
		return nil, err
	}

	pcmBuf := rollbuffer.NewSync[int16](pcmBufferSamples, cfg.Broadcast)
	featPipe, err := features.New(features.Config{
		MelModelPath:       cfg.MelModelPath,
		EmbeddingModelPath: cfg.EmbeddingModelPath,
		NumCPU:             cfg.NumCPU,
	}, pcmBuf, featsBuf)
	if err != nil {
		wwDetector.Close()
		return nil, err
	}

	control := &capture.Control{}
	capThread := capture.New(capture.Config{
		Source:      cfg.Source,
		DSP:         cfg.DSP,
		ChunkTimeMs: cfg.ChunkTimeMs,
		Sync:        cfg.Sync,
	}, pcmBuf, control)

	return &Detector{
		capture:  capThread,
		features: featPipe,
		wakeword: wwDetector,
		control:  control,
		Matches:  matches,
	}, nil
}

// Run starts all three threads and blocks until every one of them has
// exited. It waits on all three together, in no particular order; a stop
// cascades capture -> features -> wake-word per spec.md §5's cancellation
// flow.
func (d *Detector) Run() {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); d.capture.Run() }()
	go func() { defer wg.Done(); d.features.Run() }()
	go func() { defer wg.Done(); d.wakeword.Run() }()
	wg.Wait()
}

// Stop requests the capture thread cancel; the cancellation propagates
// downstream through features and wake-word to Matches.
func (d *Detector) Stop() { d.control.Stop() }

// Reset requests every stage clear its scratch state on its next
// iteration, per spec.md §5's SIGUSR1 behavior.
func (d *Detector) Reset() { d.control.RequestReset() }

// Close releases the capture source and every loaded model.
func (d *Detector) Close() error {
	return errors.Join(d.capture.Close(), d.features.Close(), d.wakeword.Close())
}

// PreprocessorConfig configures a Preprocessor's single capture-and-DSP
// stage.
type PreprocessorConfig struct {
	Source      capture.Source
	DSP         *webrtcapm.Processor
	ChunkTimeMs int
	Sync        bool
	VAD         bool
	Broadcast   bool
}

// Preprocessor owns the single-thread capture stage spec.md §4.5/§5
// describes: no features or wake-word models, output is raw (DSP'd) PCM
// chunks, optionally paired with a per-chunk VAD byte.
type Preprocessor struct {
	capture *capture.Thread
	control *capture.Control

	Output *rollbuffer.Sync[int16]
	// VAD, non-nil only when cfg.VAD is set, receives one byte per
	// chunk in the same order chunks land in Output — the capture
	// thread's OnChunk hook runs synchronously just before the
	// corresponding Append, so a consumer that reads a chunk from
	// Output can always then read its VAD byte without blocking.
	VAD chan byte
}

// NewPreprocessor wires a capture Thread reading from cfg.Source into a
// fresh output buffer.
func NewPreprocessor(cfg PreprocessorConfig) *Preprocessor {
	control := &capture.Control{}
	output := rollbuffer.NewSync[int16](pcmaudio.ChunkSamples*2, cfg.Broadcast)

	capThread := capture.New(capture.Config{
		Source:      cfg.Source,
		DSP:         cfg.DSP,
		ChunkTimeMs: cfg.ChunkTimeMs,
		Sync:        cfg.Sync,
	}, output, control)

	p := &Preprocessor{capture: capThread, control: control, Output: output}
	if cfg.VAD {
		p.VAD = make(chan byte, 4)
		capThread.OnChunk = func(vad byte) {
			p.VAD <- vad
		}
	}
	return p
}

// Run starts the capture thread and blocks until it exits.
func (p *Preprocessor) Run() { p.capture.Run() }

// Stop requests the capture thread cancel its output.
func (p *Preprocessor) Stop() { p.control.Stop() }

// Reset requests the capture thread discard its partial chunk and reset
// its output buffer.
func (p *Preprocessor) Reset() { p.control.RequestReset() }

// Close releases the underlying source.
func (p *Preprocessor) Close() error { return p.capture.Close() }
