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

package wakeword

import (
	"log"
	"math"

	"github.com/vozlabs/voz/internal/features"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/tflite"
)

// modelState is one configured wake word's runtime state: its model, the
// window/offset spec.md §4.4 derives from every configured model's window,
// and the patience counter the predict step advances.
type modelState struct {
	model tflite.Model

	name      string
	threshold float32
	patience  int

	window int
	offset int

	count int
}

// Detector holds every configured wake-word model and drives the outer
// predict-then-shift loop over a shared embeddings buffer.
type Detector struct {
	models []*modelState

	maxWindow int
	minWindow int

	features *features.Output
	output   *rollbuffer.Sync[Match]
}

// New loads one model per configured wake word, derives window/offset
// from their input shapes, and builds a Detector together with the
// shared embeddings buffer the features pipeline should write into —
// its capacity (max_window+1 per spec.md §4.4) is only known once every
// model's input shape has been read, so this is the one place that can
// allocate it.
func New(cfgs []Config, broadcast bool, output *rollbuffer.Sync[Match]) (*Detector, *features.Output, error) {
	models := make([]*modelState, 0, len(cfgs))
	for _, cfg := range cfgs {
		m, err := tflite.Load(cfg.Path, 1, false, nil)
		if err != nil {
			for _, loaded := range models {
				loaded.model.Close()
			}
			return nil, nil, err
		}
		models = append(models, &modelState{
			model:     m,
			name:      cfg.Name,
			threshold: cfg.Threshold,
			patience:  cfg.Patience,
			window:    windowOf(m),
		})
	}
	d, feats := buildDetector(models, broadcast, output)
	return d, feats, nil
}

// LoadedModel pairs an already-loaded model with its wake-word
// configuration, letting NewFromModels skip tflite.Load — the seam
// pipeline tests use to drive a Detector with tflite.FakeModel.
type LoadedModel struct {
	Model     tflite.Model
	Name      string
	Threshold float32
	Patience  int
}

// NewFromModels builds a Detector from already-loaded models, mirroring
// New without the tflite.Load step.
func NewFromModels(loaded []LoadedModel, broadcast bool, output *rollbuffer.Sync[Match]) (*Detector, *features.Output) {
	models := make([]*modelState, 0, len(loaded))
	for _, l := range loaded {
		models = append(models, &modelState{
			model:     l.Model,
			name:      l.Name,
			threshold: l.Threshold,
			patience:  l.Patience,
			window:    windowOf(l.Model),
		})
	}
	return buildDetector(models, broadcast, output)
}

// buildDetector derives window/offset bounds from already-populated
// modelState.window fields and allocates the shared embeddings buffer.
func buildDetector(models []*modelState, broadcast bool, output *rollbuffer.Sync[Match]) (*Detector, *features.Output) {
	maxWindow, minWindow := 0, math.MaxInt
	for _, m := range models {
		if m.window > maxWindow {
			maxWindow = m.window
		}
		if m.window < minWindow {
			minWindow = m.window
		}
	}
	for _, m := range models {
		m.offset = maxWindow - m.window
	}

	feats := rollbuffer.NewSync[features.Embedding](maxWindow+1, broadcast)

	return &Detector{
		models:    models,
		maxWindow: maxWindow,
		minWindow: minWindow,
		features:  feats,
		output:    output,
	}, feats
}

// windowOf reads a wake-word model's window off input dimension 1 (the
// model's declared [1, window, EmbeddingSize] input shape).
func windowOf(m tflite.Model) int {
	shape := m.InputShape()
	if len(shape) < 2 {
		return 1
	}
	return shape[1]
}

// MaxWindow returns the largest configured model window.
func (d *Detector) MaxWindow() int { return d.maxWindow }

// MinWindow returns the smallest configured model window.
func (d *Detector) MinWindow() int { return d.minWindow }

// Close releases every configured model.
func (d *Detector) Close() error {
	var first error
	for _, m := range d.models {
		if err := m.model.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run blocks on the shared embeddings buffer for at least MaxWindow
// features, predicts, and shifts the window forward by one embedding,
// until the input is cancelled.
func (d *Detector) Run() {
	for {
		h := d.features.WaitAtLeast(d.maxWindow)
		status := h.Status()
		hasWindow := h.Len() >= d.maxWindow

		var matches []Match
		if hasWindow {
			matches = d.predict(h.Get()[:d.maxWindow])
			h.Shift(1)
		}

		if status.Reset {
			h.Reset()
			h.ReleaseAndSignal()
		} else {
			h.Release()
		}

		if len(matches) > 0 {
			d.output.Append(matches)
		}

		if status.Cancel {
			d.output.Cancel()
			return
		}
		if status.Reset {
			for _, m := range d.models {
				m.count = 0
			}
			d.output.Reset()
		}
	}
}

// predict runs every configured model against its slice of the current
// window and returns matches in configuration order, preserving ties.
func (d *Detector) predict(window []features.Embedding) []Match {
	var matches []Match
	for _, m := range d.models {
		if len(window) < m.offset+m.window {
			continue
		}
		rows := window[m.offset : m.offset+m.window]
		raw := embeddingsToBytes(rows)
		out, err := m.model.RunFloat32(raw)
		if err != nil {
			log.Printf("wakeword: %s: predict error: %v", m.name, err)
			continue
		}
		if len(out) == 0 {
			continue
		}
		score := out[0]
		if score <= m.threshold {
			m.count = 0
			continue
		}
		m.count++
		if m.count >= m.patience {
			matches = append(matches, Match{Name: m.name, Score: score, Count: m.count})
		}
	}
	return matches
}
