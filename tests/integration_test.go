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

package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozlabs/voz/internal/control"
	"github.com/vozlabs/voz/internal/features"
	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/serial"
	"github.com/vozlabs/voz/internal/tflite"
	"github.com/vozlabs/voz/internal/wakeword"
)

// testMelPerChunk is the fake mel model's declared per-chunk row count
// (M), matching internal/features' own testM so the warm-up math lines up
// with what the feature pipeline actually does.
const testMelPerChunk = 8

// TestFeatureWarmUpProducesEmbeddingsOnlyOnceFrameCompletes is spec.md §8
// scenario S1: no embeddings are emitted until a full overlap+frame
// window has landed in the input buffer, and once it has, exactly one
// frame's worth of embeddings (chunks_per_frame) comes out.
func TestFeatureWarmUpProducesEmbeddingsOnlyOnceFrameCompletes(t *testing.T) {
	melModel := tflite.NewFakeModel([]int{1, testMelPerChunk, features.MelBins}, []int{1, testMelPerChunk, features.MelBins})
	melPerFrame := pcmaudio.ChunksPerFrame * testMelPerChunk
	melModel.Outputs = [][]float32{make([]float32, melPerFrame*features.MelBins)}

	embModel := tflite.NewFakeModel([]int{1, features.MelRequiredRows, features.MelBins}, []int{1, features.EmbeddingSize})
	embModel.Outputs = [][]float32{make([]float32, features.EmbeddingSize)}

	input := rollbuffer.NewSync[int16](pcmaudio.FrameSamples+pcmaudio.OverlapSamples+pcmaudio.ChunkSamples, false)
	output := rollbuffer.NewSync[features.Embedding](8, false)
	pipe := features.NewFromModels(melModel, embModel, input, output)
	defer pipe.Close()

	done := make(chan struct{})
	go func() {
		pipe.Run()
		close(done)
	}()
	defer func() {
		input.Cancel()
		<-done
	}()

	// Short of a full frame+overlap: no embeddings should appear.
	input.Append(make([]int16, pcmaudio.FrameSamples))
	time.Sleep(80 * time.Millisecond)
	require.False(t, output.StatusSnapshot().Cancel, "sanity: pipeline must still be running")
	h := output.WaitAtLeast(0)
	assert.Equal(t, 0, h.Len(), "no embeddings expected before a full overlap+frame window lands")
	h.Release()

	// Complete the window: exactly one frame's worth of embeddings.
	input.Append(make([]int16, pcmaudio.OverlapSamples))
	h = output.WaitAtLeast(pcmaudio.ChunksPerFrame)
	assert.Equal(t, pcmaudio.ChunksPerFrame, h.Len())
	h.Release()
}

// TestPatienceGatingEmitsOnceAtConfiguredCount is spec.md §8 scenario S3:
// one model at threshold=0.5, patience=3, presented with scores
// [0.2, 0.6, 0.6, 0.6, 0.2] over consecutive windows emits exactly one
// match, with count=3, on the third 0.6, and the patience counter resets
// afterward.
func TestPatienceGatingEmitsOnceAtConfiguredCount(t *testing.T) {
	const window = 4
	model := tflite.NewFakeModel([]int{1, window, features.EmbeddingSize}, []int{1, 1})
	model.Outputs = [][]float32{{0.2}, {0.6}, {0.6}, {0.6}, {0.2}}

	matches := rollbuffer.NewSync[wakeword.Match](8, false)
	d, feats := wakeword.NewFromModels([]wakeword.LoadedModel{
		{Model: model, Name: "hey_voz", Threshold: 0.5, Patience: 3},
	}, false, matches)
	defer d.Close()

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	defer func() {
		feats.Cancel()
		<-done
	}()

	// Fill the first full window, then append one embedding per
	// subsequent score so Run's wait_at_least/shift-by-one loop advances
	// exactly once per configured score.
	feats.Append(make([]features.Embedding, window))
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 4; i++ {
		feats.AppendOne(features.Embedding{})
		time.Sleep(20 * time.Millisecond)
	}

	h := matches.WaitAtLeast(1)
	require.Len(t, h.Get(), 1)
	assert.Equal(t, "hey_voz", h.Get()[0].Name)
	assert.Equal(t, 3, h.Get()[0].Count)
	h.Shift(1)
	h.Release()
}

// TestWwConfRestartReplacesChildAndUpdatesMask is spec.md §8 scenario S6:
// starting in WakeWord mode with only entry 0 enabled, a WwConf enabling
// entry 1 must echo a WwStatus for entry 1, leave both entries enabled in
// the catalog mask, and hand control to a freshly spawned child distinct
// from the one WakeWord mode originally started.
func TestWwConfRestartReplacesChildAndUpdatesMask(t *testing.T) {
	dir := t.TempDir()
	writeStubModel(t, dir, "a.tflite")
	writeStubModel(t, dir, "b.tflite")
	catalog, err := control.LoadCatalog(dir)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	var spawned []*control.FakeChild
	spawn := func(mode control.Mode, args []string) (control.Child, error) {
		c := control.NewFakeChild()
		spawned = append(spawned, c)
		return c, nil
	}

	var wire bytes.Buffer
	codec := serial.NewCodec(&bytes.Buffer{}, &wire)
	sm := control.New(codec, spawn, catalog)

	require.NoError(t, sm.TransitionTo(control.WakeWord))
	require.Len(t, spawned, 1)
	firstChild := spawned[0]

	confPayload, err := serial.EncodeWwConf(serial.WwConfPayload{
		Index: 1, Enabled: 1, Threshold: 0.6, Patience: 2,
	})
	require.NoError(t, err)
	require.NoError(t, sm.HandleFrame(serial.NewFrame(serial.WwConf, confPayload)))

	require.Len(t, spawned, 2, "WwConf on a live WakeWord session must restart the child")
	assert.NotSame(t, firstChild, spawned[1])
	assert.True(t, firstChild.Stopped(), "previous child must be stopped before the new one takes over")

	assert.Equal(t, uint16(0b11), catalog.EnabledMask())

	frames := decodeAllFrames(t, wire.Bytes())
	var wwStatusCount int
	var lastStatus *serial.StatusPayload
	for _, f := range frames {
		switch f.EventID {
		case serial.WwStatus:
			name, conf, err := serial.DecodeWwStatus(f.Payload)
			require.NoError(t, err)
			if conf.Index == 1 {
				wwStatusCount++
				assert.Equal(t, "b", name)
				assert.Equal(t, uint8(1), conf.Enabled)
				assert.InDelta(t, 0.6, conf.Threshold, 1e-6)
				assert.Equal(t, uint8(2), conf.Patience)
			}
		case serial.Status:
			status, err := serial.DecodeStatus(f.Payload)
			require.NoError(t, err)
			lastStatus = &status
		}
	}
	assert.Equal(t, 1, wwStatusCount, "expected exactly one WwStatus echo for the reconfigured entry")
	require.NotNil(t, lastStatus, "expected a Status frame to have been emitted")
	assert.Equal(t, uint16(0b11), lastStatus.WakewordMask, "Status.wakeword_mask must reflect both enabled entries on the wire")
}

func writeStubModel(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{}, 0o644))
}

func decodeAllFrames(t *testing.T, wire []byte) []*serial.Frame {
	t.Helper()
	reader := serial.NewReader(bytes.NewReader(wire))
	var frames []*serial.Frame
	for {
		f, err := reader.ReadFrame()
		if err != nil {
			break
		}
		frames = append(frames, f)
	}
	return frames
}
