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

// Package audio abstracts the microphone backend a live capture.Source
// reads from, so the pipeline can run against real hardware or a mock
// generator without capture itself knowing the difference.
package audio

// Backend opens microphone input streams. voz-oww and voz-pre are
// capture-only: nothing in this system ever plays audio back, so the
// interface has no output side.
type Backend interface {
	Initialize() error
	Terminate() error

	// CreateInputStream opens a mono input stream at sampleRate Hz,
	// delivering bufferSize samples per Read call.
	CreateInputStream(sampleRate float64, channels, bufferSize int) (Stream, error)
}

// Stream is one open input stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error

	// Read blocks until len(data) samples have been captured, or the
	// stream is stopped.
	Read(data []float32) error

	IsActive() bool
}
