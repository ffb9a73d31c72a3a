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

// Package pcmaudio holds the fixed framing constants and sample-format
// helpers every stage of the pipeline shares: 16 kHz mono signed 16-bit
// little-endian PCM, chunked into 80 ms chunks and 320 ms frames with a
// 30 ms overlap.
package pcmaudio

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	SampleRateHz = 16000
	BytesPerSample = 2

	ChunkSamples = 1280 // 80ms
	ChunksPerFrame = 4
	FrameSamples = ChunkSamples * ChunksPerFrame // 320ms, 5120 samples
	OverlapMs      = 30
	OverlapSamples = SampleRateHz * OverlapMs / 1000 // 480 samples

	ChunkBytes = ChunkSamples * BytesPerSample
)

// SamplesToInt16 decodes little-endian signed 16-bit samples from raw
// bytes. len(raw) must be even.
func SamplesToInt16(raw []byte, out []int16) int {
	n := len(raw) / BytesPerSample
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return n
}

// Int16ToBytes encodes signed 16-bit samples to little-endian bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Int16ToFloat32 converts a PCM sample to the [-1,1] float range used by
// the PortAudio streaming backend.
func Int16ToFloat32(samples []int16, out []float32) {
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
}

// Float32ToInt16 converts PortAudio's [-1,1] float samples to PCM,
// clamping to the int16 range. Mirrors the scale-and-clamp conversion the
// teacher's transport layer used when it shipped float32 audio chunks as
// 16-bit PCM over the wire.
func Float32ToInt16(samples []float32, out []int16) {
	for i, s := range samples {
		scaled := s * 32768
		switch {
		case scaled > 32767:
			out[i] = 32767
		case scaled <= -32768:
			out[i] = -32767
		default:
			out[i] = int16(scaled)
		}
	}
}

// WavHeader is the 44-byte fixed-layout RIFF/WAVE header this system
// accepts: PCM, mono, 16000 Hz, 16-bit.
type WavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const WavHeaderSize = 44

// ReadWavHeader reads and validates the 44-byte header per §4.5/§6: only
// AudioFormat=1 (PCM), NumChannels=1, SampleRate=16000, BitsPerSample=16,
// and a Subchunk2ID starting with 'd' and ending with 'a' (i.e. "data") is
// accepted.
func ReadWavHeader(r io.Reader) (*WavHeader, error) {
	var h WavHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if h.AudioFormat != 1 {
		return nil, fmt.Errorf("wav header: unsupported AudioFormat %d, want 1 (PCM)", h.AudioFormat)
	}
	if h.NumChannels != 1 {
		return nil, fmt.Errorf("wav header: unsupported NumChannels %d, want 1", h.NumChannels)
	}
	if h.SampleRate != SampleRateHz {
		return nil, fmt.Errorf("wav header: unsupported SampleRate %d, want %d", h.SampleRate, SampleRateHz)
	}
	if h.BitsPerSample != 16 {
		return nil, fmt.Errorf("wav header: unsupported BitsPerSample %d, want 16", h.BitsPerSample)
	}
	if h.Subchunk2ID[0] != 'd' || h.Subchunk2ID[3] != 'a' {
		return nil, fmt.Errorf("wav header: unexpected Subchunk2ID %q, want it to start with 'd' and end with 'a'", h.Subchunk2ID)
	}
	return &h, nil
}
