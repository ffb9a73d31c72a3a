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

package gpio

import (
	"time"

	"github.com/vozlabs/voz/internal/rollbuffer"
)

// Command is one action the worker thread executes against the LED or
// interrupt line.
type Command int

const (
	On Command = iota
	Off
	Blink
	Int
	Quit
)

const (
	defaultBlinkHold = 350 * time.Millisecond
	defaultIntPulse  = 10 * time.Millisecond
)

// Queue is the shared roll-buffer callers post commands into; the LED and
// interrupt lines may be driven by the same worker even when they're on
// different chips, since the chip is a property of how Open resolved each
// Pin, not of the queue.
type Queue = rollbuffer.Sync[Command]

// Worker drains Queue, driving led for On/Off/Blink and interrupt for
// Int. led and interrupt may be the same Pin if the chip is shared.
type Worker struct {
	led        Pin
	interrupt  Pin
	queue      *Queue
	blinkHold  time.Duration
	intPulse   time.Duration
}

// NewWorker builds a Worker over queue. blinkHold/intPulse of zero use
// the spec's defaults (350ms / 10ms); tests may override them to run
// fast.
func NewWorker(led, interrupt Pin, queue *Queue, blinkHold, intPulse time.Duration) *Worker {
	if blinkHold <= 0 {
		blinkHold = defaultBlinkHold
	}
	if intPulse <= 0 {
		intPulse = defaultIntPulse
	}
	return &Worker{led: led, interrupt: interrupt, queue: queue, blinkHold: blinkHold, intPulse: intPulse}
}

// Run drains commands until Quit is dequeued or the queue is cancelled.
func (w *Worker) Run() {
	for {
		h := w.queue.WaitAtLeast(1)
		status := h.Status()
		has := h.Len() > 0
		var cmd Command
		if has {
			cmd = h.Get()[0]
			h.Shift(1)
		}
		h.Release()

		if status.Cancel {
			return
		}
		if !has {
			continue
		}
		if cmd == Quit {
			return
		}
		w.execute(cmd)
	}
}

func (w *Worker) execute(cmd Command) {
	switch cmd {
	case On:
		w.led.Out(true)
	case Off:
		w.led.Out(false)
	case Blink:
		w.led.Out(true)
		time.Sleep(w.blinkHold)
		w.led.Out(false)
	case Int:
		// Open-high idle, active-low pulse.
		w.interrupt.Out(false)
		time.Sleep(w.intPulse)
		w.interrupt.Out(true)
	}
}
