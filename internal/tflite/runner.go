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

// Package tflite is a thin, uniform wrapper over the TFLite C API. It
// assumes exactly one input tensor and one output tensor per model — the
// contract every model in this system is built against — and exposes the
// output tensor as a borrow that is only valid until the next Run,
// SetInputShape, or Close on that Runner.
package tflite

import (
	"fmt"

	"github.com/vozlabs/voz/internal/verrors"
)

// Runner loads one TFLite model and runs it repeatedly. It is not
// thread-safe: each pipeline thread owns its own Runner, matching the
// spec's requirement that the inference engine is never shared across
// threads.
type Runner struct {
	impl *binding

	inputShape  []int
	outputShape []int
}

// Load loads a model from path, optionally resizes input-0 to inputShape
// (nil to keep the model's declared shape), enables XNNPack with the given
// thread count when useXNN is set, and allocates tensors. It fails with a
// verrors.KindTensorAlloc error if the model declares zero input or output
// tensors.
func Load(path string, threads int, useXNN bool, inputShape []int) (*Runner, error) {
	impl, err := newBinding(path, threads, useXNN)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindTensorAlloc, fmt.Errorf("tflite: load %s: %w", path, err))
	}
	if impl.numInputs() == 0 || impl.numOutputs() == 0 {
		impl.close()
		return nil, verrors.New(verrors.KindTensorAlloc, "tflite: model %s is not runnable: needs exactly one input and one output tensor", path)
	}

	r := &Runner{impl: impl}
	if inputShape != nil {
		if err := r.SetInputShape(inputShape); err != nil {
			impl.close()
			return nil, err
		}
	} else {
		if err := impl.allocateTensors(); err != nil {
			impl.close()
			return nil, verrors.Wrap(verrors.KindTensorAlloc, err)
		}
		r.refreshShapes()
	}
	return r, nil
}

// SetInputShape resizes input-0, reallocates tensors, and refreshes the
// cached shapes.
func (r *Runner) SetInputShape(shape []int) error {
	if err := r.impl.resizeInput(0, shape); err != nil {
		return verrors.Wrap(verrors.KindTensorRuntime, fmt.Errorf("tflite: resize input: %w", err))
	}
	if err := r.impl.allocateTensors(); err != nil {
		return verrors.Wrap(verrors.KindTensorRuntime, fmt.Errorf("tflite: allocate tensors: %w", err))
	}
	r.refreshShapes()
	return nil
}

func (r *Runner) refreshShapes() {
	r.inputShape = r.impl.tensorShape(true, 0)
	r.outputShape = r.impl.tensorShape(false, 0)
}

// InputShape returns the cached input-0 dimension vector.
func (r *Runner) InputShape() []int { return append([]int{}, r.inputShape...) }

// OutputShape returns the cached output-0 dimension vector.
func (r *Runner) OutputShape() []int { return append([]int{}, r.outputShape...) }

// InputByteSize returns the current byte size input-0 expects.
func (r *Runner) InputByteSize() int { return r.impl.tensorByteSize(true, 0) }

// RunFloat32 copies raw into input-0 (whose byte length must match exactly),
// invokes the model, and returns a borrow of output-0 reinterpreted as
// float32. The returned slice is valid only until the next Run,
// SetInputShape, or Close — callers that need the data past that must copy.
func (r *Runner) RunFloat32(raw []byte) ([]float32, error) {
	want := r.impl.tensorByteSize(true, 0)
	if len(raw) != want {
		return nil, verrors.New(verrors.KindTensorRuntime, "tflite: input size mismatch: got %d bytes, want %d", len(raw), want)
	}
	if err := r.impl.copyToInput(0, raw); err != nil {
		return nil, verrors.Wrap(verrors.KindTensorRuntime, fmt.Errorf("tflite: copy input: %w", err))
	}
	if err := r.impl.invoke(); err != nil {
		return nil, verrors.Wrap(verrors.KindTensorRuntime, fmt.Errorf("tflite: invoke: %w", err))
	}
	return r.impl.outputFloat32(0), nil
}

// Close releases the interpreter and model.
func (r *Runner) Close() error {
	return r.impl.close()
}
