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

import "fmt"

// FakeModel is a Model that never touches the vendored TFLite library,
// used the way audio.MockBackend stands in for PortAudio in tests: it
// records calls and returns a caller-supplied output for each RunFloat32.
type FakeModel struct {
	inShape  []int
	outShape []int

	// Outputs is popped from the front on each RunFloat32 call; when
	// exhausted the last element is reused. RunErr, if set, is returned
	// instead (and Outputs is left untouched).
	Outputs [][]float32
	RunErr  error

	Calls    int
	LastCall []byte
}

// NewFakeModel creates a fake model with the given input/output shapes.
func NewFakeModel(inShape, outShape []int) *FakeModel {
	return &FakeModel{inShape: inShape, outShape: outShape}
}

func (f *FakeModel) SetInputShape(shape []int) error {
	f.inShape = append([]int{}, shape...)
	return nil
}

func (f *FakeModel) RunFloat32(raw []byte) ([]float32, error) {
	f.Calls++
	f.LastCall = raw

	want := f.InputByteSize()
	if len(raw) != want {
		return nil, fmt.Errorf("tflite fake: input size mismatch: got %d bytes, want %d", len(raw), want)
	}
	if f.RunErr != nil {
		return nil, f.RunErr
	}
	if len(f.Outputs) == 0 {
		return nil, fmt.Errorf("tflite fake: no output configured")
	}
	out := f.Outputs[0]
	if len(f.Outputs) > 1 {
		f.Outputs = f.Outputs[1:]
	}
	return out, nil
}

func (f *FakeModel) InputShape() []int  { return append([]int{}, f.inShape...) }
func (f *FakeModel) OutputShape() []int { return append([]int{}, f.outShape...) }

func (f *FakeModel) InputByteSize() int {
	n := 1
	for _, d := range f.inShape {
		n *= d
	}
	return n * 4
}

func (f *FakeModel) Close() error { return nil }

var _ Model = (*FakeModel)(nil)
