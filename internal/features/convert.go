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

package features

import (
	"encoding/binary"
	"math"
)

// float32ToBytes lays out xs as little-endian IEEE-754 bytes, the raw form
// every tflite.Model.RunFloat32 call expects for a float32 input tensor.
func float32ToBytes(xs []float32) []byte {
	out := make([]byte, len(xs)*4)
	for i, x := range xs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

// melRowsToBytes flattens MelRequiredRows worth of mel vectors into the
// raw byte layout the embedding model expects: MelRequiredRows*MelBins
// contiguous float32 values.
func melRowsToBytes(rows []MelVector) []byte {
	out := make([]byte, 0, len(rows)*MelBins*4)
	for _, row := range rows {
		out = append(out, float32ToBytes(row[:])...)
	}
	return out
}
