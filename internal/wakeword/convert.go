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

package wakeword

import (
	"encoding/binary"
	"math"

	"github.com/vozlabs/voz/internal/features"
)

// embeddingsToBytes lays out a window of embeddings as the raw
// little-endian float32 buffer a wake-word model's RunFloat32 expects:
// window rows of features.EmbeddingSize contiguous floats.
func embeddingsToBytes(rows []features.Embedding) []byte {
	out := make([]byte, 0, len(rows)*features.EmbeddingSize*4)
	var tmp [4]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
			out = append(out, tmp[:]...)
		}
	}
	return out
}
