/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
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

package audio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isCIEnvironment reports whether tests are running under a CI runner,
// where no real sound card is present for PortAudio to open.
func isCIEnvironment() bool {
	for _, v := range []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

func TestPortAudioBackendLifecycle(t *testing.T) {
	if isCIEnvironment() {
		t.Skip("no sound card available in CI")
	}

	backend := NewPortAudioBackend()
	assert.False(t, backend.initialized)

	if err := backend.Initialize(); err != nil {
		t.Skipf("portaudio unavailable: %v", err)
	}
	assert.True(t, backend.initialized)

	require.NoError(t, backend.Initialize(), "double initialize should be safe")
	require.NoError(t, backend.Terminate())
	assert.False(t, backend.initialized)
	require.NoError(t, backend.Terminate(), "terminate without init should be safe")
}

func TestCreateInputStreamWithoutInitializeFails(t *testing.T) {
	backend := NewPortAudioBackend()
	stream, err := backend.CreateInputStream(16000, 1, 512)
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestPortAudioInputStreamRoundTrip(t *testing.T) {
	if isCIEnvironment() {
		t.Skip("no sound card available in CI")
	}

	backend := NewPortAudioBackend()
	if err := backend.Initialize(); err != nil {
		t.Skipf("portaudio unavailable: %v", err)
	}
	defer backend.Terminate()

	stream, err := backend.CreateInputStream(16000, 1, 512)
	if err != nil {
		t.Skipf("create input stream failed: %v", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		t.Skipf("stream start failed: %v", err)
	}
	assert.True(t, stream.IsActive())

	buf := make([]float32, 512)
	if err := stream.Read(buf); err != nil {
		t.Logf("stream read failed (environment-dependent): %v", err)
	}

	require.NoError(t, stream.Stop())
}
