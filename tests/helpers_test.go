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

package tests

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vozlabs/voz/internal/pcmaudio"
	"github.com/vozlabs/voz/internal/rollbuffer"
)

// threadSafeBuffer guards a bytes.Buffer so a Loop's writer goroutine and
// a test's assertions can touch it concurrently, mirroring the syncBuffer
// helper internal/control's own poll_test.go uses for the same reason.
type threadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *threadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *threadSafeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *threadSafeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// serialPipe returns the two ends of an in-memory UART: writes on the
// writer become readable on the reader, standing in for the real device
// serial.OpenPort would otherwise open.
func serialPipe() (io.Reader, io.WriteCloser) {
	pr, pw := io.Pipe()
	return pr, pw
}

// waitFor polls cond until it returns true or timeout elapses, failing
// the test in the latter case.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met before timeout")
	}
}

// newPCMBuffer allocates a roll-buffer sized the way capture's producers
// expect: one frame, its leading overlap, and headroom for one more
// chunk, per spec.md §4.3.
func newPCMBuffer(t *testing.T) *rollbuffer.Sync[int16] {
	t.Helper()
	const capacity = pcmaudio.FrameSamples + pcmaudio.OverlapSamples + pcmaudio.ChunkSamples
	return rollbuffer.NewSync[int16](capacity, false)
}
