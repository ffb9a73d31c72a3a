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

// #cgo LDFLAGS: -lwebrtc_apm_c -lstdc++ -lm
// #include <stdlib.h>
// #include "webrtc_apm_c.h"
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"
)

// binding is the cgo handle onto the vendored WebRTC APM C shim
// (webrtc_apm_c.h), a thin extern "C" facade the bundled library exposes
// over the real WebRTC AudioProcessing C++ class — the same shape as
// TFLite's own C API over its C++ core, wrapped by internal/tflite.
type binding struct {
	apm *C.webrtc_apm_t
}

func newBinding(cfg Config) (*binding, error) {
	handle := C.webrtc_apm_create(
		C.float(cfg.Preamp),
		C.int(cfg.NoiseLevel),
		C.int(cfg.AutoGain),
		boolToC(cfg.VAD),
		C.int(sampleRateHz),
	)
	if handle == nil {
		return nil, fmt.Errorf("webrtc_apm_create failed")
	}
	b := &binding{apm: handle}
	runtime.SetFinalizer(b, (*binding).close)
	return b, nil
}

const sampleRateHz = 16000

func boolToC(v bool) C.int {
	if v {
		return 1
	}
	return 0
}

// processSubChunk runs the APM over exactly SamplesPerSubChunk int16
// samples in place and returns the sub-chunk's VAD decision.
func (b *binding) processSubChunk(samples []int16) bool {
	ptr := (*C.int16_t)(unsafe.Pointer(&samples[0]))
	vad := C.webrtc_apm_process(b.apm, ptr, C.int(len(samples)))
	return vad != 0
}

func (b *binding) close() error {
	if b.apm != nil {
		C.webrtc_apm_destroy(b.apm)
		b.apm = nil
	}
	runtime.SetFinalizer(b, nil)
	return nil
}
