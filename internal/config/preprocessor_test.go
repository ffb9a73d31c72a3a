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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreprocessorVADFlag(t *testing.T) {
	cfg, err := ParsePreprocessor([]string{"--vad", "--noiser=2", "--autogain=10"})
	require.NoError(t, err)
	assert.True(t, cfg.DSP.VAD)
	assert.Equal(t, 2, cfg.DSP.Noiser)
	assert.Equal(t, 10, cfg.DSP.AutoGain)
}

func TestParsePreprocessorRejectsBadAudioSource(t *testing.T) {
	_, err := ParsePreprocessor([]string{"--audio=bogus"})
	require.Error(t, err)
}

func TestParsePreprocessorDefaultsToMachineOutput(t *testing.T) {
	cfg, err := ParsePreprocessor(nil)
	require.NoError(t, err)
	assert.Equal(t, "machine", string(cfg.Output))
}
