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

package tflite

// Model is the uniform inference contract spec.md §4.2 requires: load is
// out of band (via Load or NewFakeModel), everything else is these six
// operations. internal/features and internal/wakeword depend on this
// interface rather than *Runner directly, the same way capture depends on
// audio.Backend rather than *audio.PortAudioBackend — it is what makes
// those packages testable without the vendored TFLite library present.
type Model interface {
	SetInputShape(shape []int) error
	RunFloat32(raw []byte) ([]float32, error)
	InputShape() []int
	OutputShape() []int
	InputByteSize() int
	Close() error
}

var _ Model = (*Runner)(nil)
