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

import "sync"

// FakeChild is a Child that records written audio and lets tests push
// stdout lines and observe Stop, without spawning a process.
type FakeChild struct {
	mu       sync.Mutex
	lines    chan ChildLine
	errs     chan error
	written  [][]byte
	stopped  bool
	stopErr  error
	resets   int
	resetErr error
	writeErr error
}

// NewFakeChild builds a FakeChild ready to receive Push'd lines.
func NewFakeChild() *FakeChild {
	return &FakeChild{lines: make(chan ChildLine, 32), errs: make(chan error, 1)}
}

func (f *FakeChild) Err() <-chan error { return f.errs }

// Die simulates the child process exiting unexpectedly, the way a real
// ChildSupervisor's stdout closing does; a real supervisor reports io.EOF
// for a clean exit.
func (f *FakeChild) Die(err error) { f.errs <- err }

func (f *FakeChild) Lines() <-chan ChildLine { return f.lines }

func (f *FakeChild) WriteAudio(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), b...))
	return nil
}

// WriteAudioWith makes every subsequent WriteAudio call return err.
func (f *FakeChild) WriteAudioWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// Push injects a stdout line as if the child had emitted it.
func (f *FakeChild) Push(line ChildLine) { f.lines <- line }

// StopWith makes every subsequent Stop call return err.
func (f *FakeChild) StopWith(err error) { f.stopErr = err }

// ResetWith makes every subsequent Reset call return err.
func (f *FakeChild) ResetWith(err error) { f.resetErr = err }

func (f *FakeChild) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

// Resets returns how many times Reset was called.
func (f *FakeChild) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *FakeChild) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return f.stopErr
}

// Written returns every audio payload written so far.
func (f *FakeChild) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

// Stopped reports whether Stop was called.
func (f *FakeChild) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

var _ Child = (*FakeChild)(nil)
