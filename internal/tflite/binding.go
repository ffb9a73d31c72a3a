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

// #cgo LDFLAGS: -ltensorflowlite_c
// #include <stdlib.h>
// #include <tensorflow/lite/c/c_api.h>
// #include <tensorflow/lite/c/c_api_experimental.h>
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

// binding is the cgo-backed interpreter handle. It mirrors the
// model-create -> interpreter-create -> allocate-tensors -> invoke
// lifecycle of other_examples/pmdroid-microwakeword's TFLite wrapper,
// generalized to arbitrary tensor shapes and float32 (non-quantized)
// tensors instead of one fixed int8 model.
type binding struct {
	model       *C.TfLiteModel
	options     *C.TfLiteInterpreterOptions
	interpreter *C.TfLiteInterpreter
}

func newBinding(path string, threads int, useXNN bool) (*binding, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	model := C.TfLiteModelCreateFromFile(cPath)
	if model == nil {
		return nil, fmt.Errorf("failed to load model file %s", path)
	}

	options := C.TfLiteInterpreterOptionsCreate()
	if threads > 0 {
		C.TfLiteInterpreterOptionsSetNumThreads(options, C.int32_t(threads))
	}
	if useXNN {
		xnnOpts := C.TfLiteXNNPackDelegateOptionsDefault()
		xnnOpts.num_threads = C.int32_t(threads)
		delegate := C.TfLiteXNNPackDelegateCreate(&xnnOpts)
		C.TfLiteInterpreterOptionsAddDelegate(options, delegate)
	}

	interpreter := C.TfLiteInterpreterCreate(model, options)
	if interpreter == nil {
		C.TfLiteInterpreterOptionsDelete(options)
		C.TfLiteModelDelete(model)
		return nil, fmt.Errorf("failed to create interpreter")
	}

	b := &binding{model: model, options: options, interpreter: interpreter}
	runtime.SetFinalizer(b, (*binding).close)
	return b, nil
}

func (b *binding) numInputs() int {
	return int(C.TfLiteInterpreterGetInputTensorCount(b.interpreter))
}

func (b *binding) numOutputs() int {
	return int(C.TfLiteInterpreterGetOutputTensorCount(b.interpreter))
}

func (b *binding) resizeInput(index int, shape []int) error {
	dims := make([]C.int, len(shape))
	for i, d := range shape {
		dims[i] = C.int(d)
	}
	var dimsPtr *C.int
	if len(dims) > 0 {
		dimsPtr = &dims[0]
	}
	status := C.TfLiteInterpreterResizeInputTensor(b.interpreter, C.int32_t(index), dimsPtr, C.int32_t(len(dims)))
	if status != C.kTfLiteOk {
		return fmt.Errorf("resize input tensor %d to %v failed", index, shape)
	}
	return nil
}

func (b *binding) allocateTensors() error {
	if C.TfLiteInterpreterAllocateTensors(b.interpreter) != C.kTfLiteOk {
		return fmt.Errorf("allocate tensors failed")
	}
	return nil
}

func (b *binding) invoke() error {
	if C.TfLiteInterpreterInvoke(b.interpreter) != C.kTfLiteOk {
		return fmt.Errorf("invoke failed")
	}
	return nil
}

func (b *binding) tensor(isInput bool, index int) *C.TfLiteTensor {
	if isInput {
		return C.TfLiteInterpreterGetInputTensor(b.interpreter, C.int32_t(index))
	}
	// TfLiteInterpreterGetOutputTensor returns a const pointer; the cast
	// below only ever feeds it to read-only accessors.
	return (*C.TfLiteTensor)(unsafe.Pointer(C.TfLiteInterpreterGetOutputTensor(b.interpreter, C.int32_t(index))))
}

func (b *binding) tensorShape(isInput bool, index int) []int {
	t := b.tensor(isInput, index)
	if t == nil {
		return nil
	}
	nd := int(C.TfLiteTensorNumDims(t))
	shape := make([]int, nd)
	for i := 0; i < nd; i++ {
		shape[i] = int(C.TfLiteTensorDim(t, C.int32_t(i)))
	}
	return shape
}

func (b *binding) tensorByteSize(isInput bool, index int) int {
	t := b.tensor(isInput, index)
	if t == nil {
		return 0
	}
	return int(C.TfLiteTensorByteSize(t))
}

func (b *binding) copyToInput(index int, raw []byte) error {
	t := b.tensor(true, index)
	if len(raw) == 0 {
		return nil
	}
	status := C.TfLiteTensorCopyFromBuffer(t, unsafe.Pointer(&raw[0]), C.size_t(len(raw)))
	if status != C.kTfLiteOk {
		return fmt.Errorf("copy to input tensor %d failed", index)
	}
	return nil
}

// outputFloat32 reinterprets output tensor `index`'s backing bytes as
// float32 without copying — the borrow the Runner.RunFloat32 doc promises
// stays valid only until the next Invoke.
func (b *binding) outputFloat32(index int) []float32 {
	t := b.tensor(false, index)
	if t == nil {
		return nil
	}
	n := int(C.TfLiteTensorByteSize(t)) / 4
	if n == 0 {
		return nil
	}
	data := unsafe.Pointer(C.TfLiteTensorData(t))
	return unsafe.Slice((*float32)(data), n)
}

func (b *binding) close() error {
	if b.interpreter != nil {
		C.TfLiteInterpreterDelete(b.interpreter)
		b.interpreter = nil
	}
	if b.options != nil {
		C.TfLiteInterpreterOptionsDelete(b.options)
		b.options = nil
	}
	if b.model != nil {
		C.TfLiteModelDelete(b.model)
		b.model = nil
	}
	runtime.SetFinalizer(b, nil)
	return nil
}
