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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeModelInputByteSize(t *testing.T) {
	m := NewFakeModel([]int{1, 76, 32}, []int{1, 96})
	assert.Equal(t, 76*32*4, m.InputByteSize())
}

func TestFakeModelRunRejectsWrongSize(t *testing.T) {
	m := NewFakeModel([]int{1, 4}, []int{1, 1})
	m.Outputs = [][]float32{{0.5}}
	_, err := m.RunFloat32(make([]byte, 4))
	assert.Error(t, err)
}

func TestFakeModelRunCyclesOutputs(t *testing.T) {
	m := NewFakeModel([]int{1, 1}, []int{1, 1})
	m.Outputs = [][]float32{{0.1}, {0.2}}

	raw := make([]byte, m.InputByteSize())
	out1, err := m.RunFloat32(raw)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1}, out1)

	out2, err := m.RunFloat32(raw)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.2}, out2)

	out3, err := m.RunFloat32(raw)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.2}, out3, "last output is reused once exhausted")

	assert.Equal(t, 3, m.Calls)
}
