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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozlabs/voz/internal/features"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/tflite"
)

func newTestDetector(t *testing.T, windows []int, thresholds []float32, patiences []int) (*Detector, []*tflite.FakeModel, *features.Output, *rollbuffer.Sync[Match]) {
	t.Helper()
	require.Equal(t, len(windows), len(thresholds))
	require.Equal(t, len(windows), len(patiences))

	models := make([]*modelState, len(windows))
	fakes := make([]*tflite.FakeModel, len(windows))
	maxWindow := 0
	for i, w := range windows {
		if w > maxWindow {
			maxWindow = w
		}
		fake := tflite.NewFakeModel([]int{1, w, features.EmbeddingSize}, []int{1, 1})
		fakes[i] = fake
		models[i] = &modelState{
			model:     fake,
			name:      "model",
			threshold: thresholds[i],
			patience:  patiences[i],
			window:    w,
		}
	}
	for _, m := range models {
		m.offset = maxWindow - m.window
	}

	feats := rollbuffer.NewSync[features.Embedding](maxWindow+1, false)
	output := rollbuffer.NewSync[Match](8, false)

	d := &Detector{models: models, maxWindow: maxWindow, output: output, features: feats}
	return d, fakes, feats, output
}

func TestNewDerivesWindowOffsetMaxMin(t *testing.T) {
	var loaded []LoadedModel
	for _, w := range []int{16, 20, 10} {
		loaded = append(loaded, LoadedModel{
			Model:     tflite.NewFakeModel([]int{1, w, features.EmbeddingSize}, []int{1, 1}),
			Name:      "model",
			Threshold: 0.5,
			Patience:  1,
		})
	}
	d, _ := NewFromModels(loaded, false, rollbuffer.NewSync[Match](8, false))
	assert.Equal(t, 20, d.MaxWindow())
	assert.Equal(t, 10, d.MinWindow())
	assert.Equal(t, 0, d.models[1].offset)
	assert.Equal(t, 4, d.models[0].offset)
	assert.Equal(t, 10, d.models[2].offset)
}

func TestPredictEmitsOnThresholdAndPatience(t *testing.T) {
	d, fakes, _, _ := newTestDetector(t, []int{4}, []float32{0.5}, []int{2})
	window := make([]features.Embedding, d.maxWindow)

	fakes[0].Outputs = [][]float32{{0.9}}
	matches := d.predict(window)
	assert.Empty(t, matches, "first crossing only increments patience")
	assert.Equal(t, 1, d.models[0].count)

	matches = d.predict(window)
	require.Len(t, matches, 1)
	assert.Equal(t, "model", matches[0].Name)
	assert.Equal(t, float32(0.9), matches[0].Score)
	assert.Equal(t, 2, matches[0].Count)
}

func TestPredictResetsPatienceBelowThreshold(t *testing.T) {
	d, fakes, _, _ := newTestDetector(t, []int{4}, []float32{0.5}, []int{2})
	window := make([]features.Embedding, d.maxWindow)

	fakes[0].Outputs = [][]float32{{0.9}, {0.1}}
	d.predict(window)
	assert.Equal(t, 1, d.models[0].count)
	d.predict(window)
	assert.Equal(t, 0, d.models[0].count)
}

func TestPredictPreservesConfigurationOrderOnTies(t *testing.T) {
	d, fakes, _, _ := newTestDetector(t, []int{4, 4}, []float32{0.5, 0.5}, []int{1, 1})
	d.models[0].name = "first"
	d.models[1].name = "second"
	fakes[0].Outputs = [][]float32{{0.9}}
	fakes[1].Outputs = [][]float32{{0.9}}

	window := make([]features.Embedding, d.maxWindow)
	matches := d.predict(window)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Name)
	assert.Equal(t, "second", matches[1].Name)
}

func TestRunPropagatesCancel(t *testing.T) {
	d, _, feats, output := newTestDetector(t, []int{4}, []float32{0.5}, []int{1})

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	feats.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after features cancel")
	}
	assert.True(t, output.StatusSnapshot().Cancel)
}

func TestRunResetsPatienceCounters(t *testing.T) {
	d, fakes, feats, output := newTestDetector(t, []int{4}, []float32{0.1}, []int{5})
	fakes[0].Outputs = [][]float32{{0.9}}

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	feats.Append(make([]features.Embedding, d.maxWindow))
	// Give the goroutine a moment to consume the window and increment
	// patience before resetting.
	time.Sleep(50 * time.Millisecond)
	feats.Reset()
	time.Sleep(50 * time.Millisecond)

	h := feats.WaitAtLeast(0)
	assert.Equal(t, 0, h.Len(), "reset must discard buffered embeddings, not just the patience counters")
	h.Release()

	feats.Cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, output.StatusSnapshot().Cancel)
	assert.Equal(t, 0, d.models[0].count, "reset must zero the patience counter")
}
