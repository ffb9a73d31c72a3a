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

package control

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozlabs/voz/internal/serial"
	"github.com/vozlabs/voz/internal/verrors"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestLoopDispatchesInboundModeFrame(t *testing.T) {
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	child := NewFakeChild()
	codec := serial.NewCodec(pr, out)
	sm := New(codec, func(mode Mode, args []string) (Child, error) { return child, nil }, newTestCatalog(t))
	loop := NewLoop(sm, codec)
	go loop.Run()

	f := serial.NewFrame(serial.Mode, []byte{byte(WakeWord)})
	encoded, err := f.Encode()
	require.NoError(t, err)
	go pw.Write(encoded)

	waitFor(t, 2*time.Second, func() bool { return sm.Mode() == WakeWord })

	loop.Stop()
	pw.Close()
}

func TestLoopDispatchesChildReadyToStatus(t *testing.T) {
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	child := NewFakeChild()
	codec := serial.NewCodec(pr, out)
	sm := New(codec, func(mode Mode, args []string) (Child, error) { return child, nil }, newTestCatalog(t))
	require.NoError(t, sm.TransitionTo(WakeWord))
	out.Reset()

	loop := NewLoop(sm, codec)
	go loop.Run()
	child.Push(ChildLine{IsReady: true, Ready: true})

	waitFor(t, 2*time.Second, func() bool { return out.Len() > 0 })
	loop.Stop()
	pw.Close()

	got, err := serial.NewReader(bytes.NewReader(out.Bytes())).ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, serial.Status, got.EventID)
}

func TestLoopDispatchesChildMatchToWwMatch(t *testing.T) {
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	child := NewFakeChild()
	codec := serial.NewCodec(pr, out)
	sm := New(codec, func(mode Mode, args []string) (Child, error) { return child, nil }, newTestCatalog(t))
	require.NoError(t, sm.TransitionTo(WakeWord))
	out.Reset()

	loop := NewLoop(sm, codec)
	go loop.Run()
	child.Push(ChildLine{Match: true, Name: "0", Score: 0.91, Count: 3})

	waitFor(t, 2*time.Second, func() bool { return out.Len() > 0 })
	loop.Stop()
	pw.Close()

	got, err := serial.NewReader(bytes.NewReader(out.Bytes())).ReadFrame()
	require.NoError(t, err)
	require.Equal(t, serial.WwMatch, got.EventID)
	match, err := serial.DecodeWwMatch(got.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), match.Index)
	assert.Equal(t, uint8(3), match.Count)
}

func TestLoopDemotesToIdleWhenChildExitsUnexpectedly(t *testing.T) {
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	child := NewFakeChild()
	codec := serial.NewCodec(pr, out)
	sm := New(codec, func(mode Mode, args []string) (Child, error) { return child, nil }, newTestCatalog(t))
	require.NoError(t, sm.TransitionTo(WakeWord))
	out.Reset()

	loop := NewLoop(sm, codec)
	go loop.Run()
	child.Die(io.EOF)

	waitFor(t, 2*time.Second, func() bool { return sm.Mode() == Idle })
	waitFor(t, 2*time.Second, func() bool { return out.Len() > 0 })
	loop.Stop()
	pw.Close()

	frames := decodeAllStatusFrames(t, out.Bytes())
	require.NotEmpty(t, frames, "an unsupervised child exit must emit a Status frame")
	last := frames[len(frames)-1]
	assert.Equal(t, uint8(verrors.KindChildIO), last.ErrorKind)
	assert.Equal(t, uint8(Idle), last.Mode)
}

func decodeAllStatusFrames(t *testing.T, wire []byte) []serial.StatusPayload {
	t.Helper()
	r := serial.NewReader(bytes.NewReader(wire))
	var out []serial.StatusPayload
	for {
		f, err := r.ReadFrame()
		if err != nil {
			return out
		}
		if f.EventID != serial.Status {
			continue
		}
		p, err := serial.DecodeStatus(f.Payload)
		require.NoError(t, err)
		out = append(out, p)
	}
}

// syncBuffer guards a bytes.Buffer so the Loop's write goroutine and the
// test's read-after-Stop don't race the vet -race detector.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}
