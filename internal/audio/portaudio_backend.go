/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
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

package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend implements Backend using the real PortAudio library.
type PortAudioBackend struct {
	initialized bool
}

// NewPortAudioBackend creates a new PortAudio backend.
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

func (p *PortAudioBackend) Initialize() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	p.initialized = true
	return nil
}

func (p *PortAudioBackend) Terminate() error {
	if !p.initialized {
		return nil
	}
	err := portaudio.Terminate()
	p.initialized = false
	return err
}

func (p *PortAudioBackend) CreateInputStream(sampleRate float64, channels, bufferSize int) (Stream, error) {
	if !p.initialized {
		return nil, fmt.Errorf("portaudio backend not initialized")
	}

	buf := make([]float32, bufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, bufferSize, buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

// portAudioStream implements Stream over a PortAudio input-only stream.
type portAudioStream struct {
	stream *portaudio.Stream
	buf    []float32
}

func (p *portAudioStream) Start() error { return p.stream.Start() }
func (p *portAudioStream) Stop() error  { return p.stream.Stop() }
func (p *portAudioStream) Close() error { return p.stream.Close() }

func (p *portAudioStream) Read(data []float32) error {
	if err := p.stream.Read(); err != nil {
		return err
	}
	copy(data, p.buf)
	return nil
}

// IsActive always reports true once opened, including after Stop or
// Close: PortAudio's blocking API exposes no liveness check. The mic
// source's read loop does not consult it; that loop ends on Close or on a
// Read error.
func (p *portAudioStream) IsActive() bool {
	return p.stream != nil
}
