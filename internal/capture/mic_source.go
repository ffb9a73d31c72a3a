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
	"errors"
	"time"

	"github.com/vozlabs/voz/internal/audio"
	"github.com/vozlabs/voz/internal/pcmaudio"
)

// micSource adapts audio.Backend's blocking, fixed-buffer Read into the
// byte-chunk poll model the rest of capture speaks, so a live microphone
// is just another Source next to raw and wav files — this is the
// live-input path spec.md's file-oriented §4.5 leaves implicit. A
// dedicated goroutine calls Read in a tight loop since the backend has no
// callback delivery mode, and hands finished buffers off through a small
// channel ReadChunk drains.
type micSource struct {
	backend audio.Backend
	stream  audio.Stream

	frames chan []int16
	stopCh chan struct{}

	leftover []byte
}

// NewMicSource opens an input stream on backend at 16 kHz mono and starts
// streaming captured audio into an internal queue ReadChunk drains. A
// bufferSize of 0 defaults to one pcmaudio chunk, matching the
// chunk-at-a-time model the rest of capture expects.
func NewMicSource(backend audio.Backend, bufferSize int) (Source, error) {
	if bufferSize <= 0 {
		bufferSize = pcmaudio.ChunkSamples
	}
	if err := backend.Initialize(); err != nil {
		return nil, err
	}
	m := &micSource{
		backend: backend,
		frames:  make(chan []int16, 32),
		stopCh:  make(chan struct{}),
	}

	stream, err := backend.CreateInputStream(pcmaudio.SampleRateHz, 1, bufferSize)
	if err != nil {
		backend.Terminate()
		return nil, err
	}
	m.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		backend.Terminate()
		return nil, err
	}
	go m.readLoop(bufferSize)
	return m, nil
}

// readLoop pulls fixed-size float32 buffers off the stream until Close
// stops it, converting each to int16 and queueing it for ReadChunk.
func (m *micSource) readLoop(bufferSize int) {
	buf := make([]float32, bufferSize)
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if err := m.stream.Read(buf); err != nil {
			return
		}

		samples := make([]int16, len(buf))
		pcmaudio.Float32ToInt16(buf, samples)
		select {
		case m.frames <- samples:
		default:
			// Backpressure: the capture thread is behind. Drop the
			// oldest queued frame rather than blocking the read loop.
			select {
			case <-m.frames:
			default:
			}
			select {
			case m.frames <- samples:
			default:
			}
		}
	}
}

func (m *micSource) ReadChunk(buf []byte, timeout time.Duration) (int, error) {
	if len(m.leftover) > 0 {
		n := copy(buf, m.leftover)
		m.leftover = m.leftover[n:]
		return n, nil
	}
	select {
	case samples := <-m.frames:
		raw := pcmaudio.Int16ToBytes(samples)
		n := copy(buf, raw)
		if n < len(raw) {
			m.leftover = raw[n:]
		}
		return n, nil
	case <-time.After(timeout):
		return 0, ErrTimeout
	case <-m.stopCh:
		return 0, nil
	}
}

func (m *micSource) Close() error {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
	var err error
	if m.stream != nil {
		err = errors.Join(m.stream.Stop(), m.stream.Close())
	}
	if tErr := m.backend.Terminate(); tErr != nil && err == nil {
		err = tErr
	}
	return err
}
