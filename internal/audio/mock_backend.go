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
	"math"
	"sync"
	"time"
)

// MockBackend implements Backend without touching real hardware, for
// tests that exercise capture's mic source without a sound card.
type MockBackend struct {
	mu                 sync.Mutex
	initialized        bool
	streams            map[string]*MockStream
	streamCounter      int
	initErr            error
	createStreamErr    error
	simulateRealTiming bool
	recorded           [][]float32
}

// NewMockBackend creates a mock backend that generates a 440Hz sine wave
// on every input stream unless a generator is set on the stream.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		streams:            make(map[string]*MockStream),
		simulateRealTiming: true,
	}
}

func (m *MockBackend) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

func (m *MockBackend) SetCreateStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createStreamErr = err
}

// SetSimulateRealTiming controls whether Read sleeps for the duration the
// requested sample count would take at the stream's sample rate.
func (m *MockBackend) SetSimulateRealTiming(simulate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateRealTiming = simulate
}

// RecordedAudio returns every buffer Read has handed back so far.
func (m *MockBackend) RecordedAudio() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float32, len(m.recorded))
	copy(out, m.recorded)
	return out
}

func (m *MockBackend) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.initialized = true
	return nil
}

func (m *MockBackend) Terminate() error {
	m.mu.Lock()
	var streams []*MockStream
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	m.mu.Unlock()

	for _, s := range streams {
		_ = s.Stop()
		_ = s.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

func (m *MockBackend) CreateInputStream(sampleRate float64, channels, bufferSize int) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("mock audio backend not initialized")
	}
	if m.createStreamErr != nil {
		return nil, m.createStreamErr
	}

	id := fmt.Sprintf("input_%d", m.streamCounter)
	m.streamCounter++

	stream := &MockStream{
		id:                 id,
		backend:            m,
		sampleRate:         sampleRate,
		channels:           channels,
		bufferSize:         bufferSize,
		simulateRealTiming: m.simulateRealTiming,
		stopCh:             make(chan struct{}, 1),
	}
	m.streams[id] = stream
	return stream, nil
}

// MockStream implements Stream for testing.
type MockStream struct {
	mu         sync.Mutex
	id         string
	backend    *MockBackend
	sampleRate float64
	channels   int
	bufferSize int
	isOpen     bool
	isActive   bool

	simulateRealTiming bool
	stopCh             chan struct{}
	startErr           error
	stopErr            error
	closeErr           error
	readErr            error
	generator          func([]float32)
}

func (m *MockStream) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

func (m *MockStream) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetGenerator overrides the default sine-wave fill for Read.
func (m *MockStream) SetGenerator(gen func([]float32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generator = gen
}

func (m *MockStream) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.isActive {
		return fmt.Errorf("stream already active")
	}
	m.isActive = true
	m.isOpen = true
	return nil
}

func (m *MockStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	if !m.isActive {
		return nil
	}
	m.isActive = false
	select {
	case m.stopCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *MockStream) Close() error {
	m.mu.Lock()
	if m.closeErr != nil {
		defer m.mu.Unlock()
		return m.closeErr
	}
	if !m.isOpen {
		m.mu.Unlock()
		return nil
	}
	m.isOpen = false
	m.isActive = false
	m.mu.Unlock()

	m.backend.mu.Lock()
	delete(m.backend.streams, m.id)
	m.backend.mu.Unlock()
	return nil
}

// Read fills data with one buffer of generated (or caller-supplied) audio,
// recording a copy on the backend for assertions.
func (m *MockStream) Read(data []float32) error {
	m.mu.Lock()
	if m.readErr != nil {
		defer m.mu.Unlock()
		return m.readErr
	}
	if !m.isOpen {
		defer m.mu.Unlock()
		return fmt.Errorf("stream not open")
	}

	if m.generator != nil {
		m.generator(data)
	} else {
		for i := range data {
			t := float64(i) / m.sampleRate
			data[i] = float32(0.1 * math.Sin(2*math.Pi*440*t))
		}
	}
	simulate := m.simulateRealTiming
	rate := m.sampleRate
	m.mu.Unlock()

	dataCopy := make([]float32, len(data))
	copy(dataCopy, data)
	m.backend.mu.Lock()
	m.backend.recorded = append(m.backend.recorded, dataCopy)
	m.backend.mu.Unlock()

	if simulate {
		time.Sleep(time.Duration(float64(len(data)) / rate * float64(time.Second)))
	}
	return nil
}

func (m *MockStream) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isActive
}
