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

package capture

import (
	"sync"
	"time"

	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/webrtcapm"
)

// Control holds the stop/reset flags a signal handler or SIGUSR1 sets from
// outside the capture thread. It is safe for concurrent use.
type Control struct {
	mu    sync.Mutex
	stop  bool
	reset bool
}

// Stop requests the capture thread exit and cancel its output on its next
// poll iteration.
func (c *Control) Stop() {
	c.mu.Lock()
	c.stop = true
	c.mu.Unlock()
}

// RequestReset requests the capture thread discard its partial chunk and
// reset its output buffer on its next poll iteration.
func (c *Control) RequestReset() {
	c.mu.Lock()
	c.reset = true
	c.mu.Unlock()
}

func (c *Control) snapshot() (stop, reset bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop, c.reset
}

func (c *Control) clearReset() {
	c.mu.Lock()
	c.reset = false
	c.mu.Unlock()
}

// Thread is the capture-and-DSP stage of spec.md §4.5: it reads whole
// chunks off a Source, DSPs them in place when a processor is configured,
// and appends them to a shared output buffer of int16 samples.
type Thread struct {
	source Source
	dsp    *webrtcapm.Processor // nil when no DSP was requested

	chunkTimeMs int
	sync        bool

	output  *rollbuffer.Sync[int16]
	control *Control

	// OnChunk, if set, is invoked with each chunk's aggregated VAD byte
	// after DSP runs — the hook voz-pre's --vad output prefix and the
	// serial bridge's BAudio event_extra both consume.
	OnChunk func(vad byte)
}

// Config configures a capture Thread.
type Config struct {
	Source      Source
	DSP         *webrtcapm.Processor
	ChunkTimeMs int
	Sync        bool
}

// New builds a capture Thread writing into output, controlled by control.
func New(cfg Config, output *rollbuffer.Sync[int16], control *Control) *Thread {
	return &Thread{
		source:      cfg.Source,
		dsp:         cfg.DSP,
		chunkTimeMs: cfg.ChunkTimeMs,
		sync:        cfg.Sync,
		output:      output,
		control:     control,
	}
}

// Run polls the source for one full chunk at a time until EOF or a stop
// request, DSPing and appending each complete chunk to the output buffer.
func (t *Thread) Run() {
	chunk := make([]byte, pcmaudio.ChunkBytes)
	filled := 0
	timeout := time.Duration(t.chunkTimeMs) * time.Millisecond

	for {
		stop, reset := t.control.snapshot()
		if stop {
			t.output.Cancel()
			return
		}
		if reset {
			filled = 0
			t.output.Reset()
			t.control.clearReset()
			continue
		}

		start := time.Now()
		n, err := t.source.ReadChunk(chunk[filled:], timeout)
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			t.output.Cancel()
			return
		}
		if n == 0 {
			t.output.Cancel()
			return
		}
		filled += n
		if filled < len(chunk) {
			continue
		}

		samples := make([]int16, pcmaudio.ChunkSamples)
		pcmaudio.SamplesToInt16(chunk, samples)

		if t.dsp != nil {
			vad, err := t.dsp.ProcessChunk(samples)
			if err == nil && t.OnChunk != nil {
				t.OnChunk(vad)
			}
		}

		t.output.Append(samples)
		filled = 0

		if t.sync {
			elapsed := time.Since(start)
			chunkTime := time.Duration(pcmaudio.ChunkSamples) * time.Second / pcmaudio.SampleRateHz
			guard := time.Microsecond
			sleep := chunkTime - elapsed - guard
			if sleep > 0 {
				time.Sleep(sleep)
			}
		}
	}
}

// Close releases the underlying source.
func (t *Thread) Close() error {
	return t.source.Close()
}
