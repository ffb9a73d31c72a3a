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

package webrtcapm

// FakeDSP is a DSP that never touches the vendored library. Gain, when
// non-zero, is multiplied into every sample so tests can observe that
// ProcessSubChunk ran; VADPattern is consumed round-robin to script VAD
// decisions.
type FakeDSP struct {
	Gain       int16
	VADPattern []bool

	Calls int
}

func (f *FakeDSP) ProcessSubChunk(samples []int16) bool {
	if f.Gain != 0 {
		for i := range samples {
			samples[i] *= f.Gain
		}
	}
	var vad bool
	if len(f.VADPattern) > 0 {
		vad = f.VADPattern[f.Calls%len(f.VADPattern)]
	}
	f.Calls++
	return vad
}

func (f *FakeDSP) Close() error { return nil }

var _ DSP = (*FakeDSP)(nil)
