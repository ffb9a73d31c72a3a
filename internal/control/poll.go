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
	"log"
	"strconv"
	"time"

	"github.com/vozlabs/voz/internal/serial"
	"github.com/vozlabs/voz/internal/telemetry"
	"github.com/vozlabs/voz/internal/verrors"
)

// pollTimeout and watchdogPeriod match spec.md §4.7's "poll over up to
// three descriptors ... 500ms timeout" and "30-second watchdog".
const (
	pollTimeout    = 500 * time.Millisecond
	watchdogPeriod = 30 * time.Second
)

// Loop drives the state machine: it reads frames off the UART, dispatches
// the running child's stdout events, and emits a periodic watchdog
// status, all without blocking each other, the way puck_client.go's
// StreamAudio pairs a frame-pump goroutine with a heartbeat ticker.
type Loop struct {
	sm      *StateMachine
	codec   *serial.Codec
	uart    chan *serial.Frame
	uartErr chan error
	stop    chan struct{}
	done    chan struct{}
	pub     *telemetry.Publisher
}

// SetPublisher wires an optional telemetry.Publisher: when set, the loop
// mirrors matches and status changes onto NATS alongside the UART frames
// it already writes.
func (l *Loop) SetPublisher(pub *telemetry.Publisher) { l.pub = pub }

// NewLoop builds a Loop reading frames from codec into sm.
func NewLoop(sm *StateMachine, codec *serial.Codec) *Loop {
	return &Loop{
		sm:      sm,
		codec:   codec,
		uart:    make(chan *serial.Frame, 8),
		uartErr: make(chan error, 8),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (l *Loop) pumpUART() {
	for {
		select {
		case <-l.stop:
			return
		default:
		}
		f, err := l.codec.ReadFrame()
		if err != nil {
			if verrors.KindOf(err) == verrors.KindIO {
				return
			}
			l.uartErr <- err
			continue
		}
		l.uart <- f
	}
}

// Run starts the UART pump and dispatches events until Stop is called.
// It exits after the current select iteration observes stop, so it
// never blocks longer than pollTimeout past a Stop call.
func (l *Loop) Run() {
	defer close(l.done)
	go l.pumpUART()

	watchdog := time.NewTicker(watchdogPeriod)
	defer watchdog.Stop()

	for {
		var childLines <-chan ChildLine
		var childErr <-chan error
		if l.sm.child != nil {
			childLines = l.sm.child.Lines()
			childErr = l.sm.child.Err()
		}

		select {
		case <-l.stop:
			return
		case f := <-l.uart:
			if err := l.sm.HandleFrame(f); err != nil {
				log.Printf("control: handle frame %s: %v", f.EventID, err)
			}
		case err := <-l.uartErr:
			log.Printf("control: frame error: %v", err)
		case line := <-childLines:
			l.dispatchChildLine(line)
		case err := <-childErr:
			l.handleChildExit(err)
		case <-watchdog.C:
			if err := l.sm.emitStatus(); err != nil {
				log.Printf("control: watchdog status: %v", err)
			}
			log.Printf("control: watchdog: mode=%s frames=%d matches=%d", l.sm.mode, l.sm.framesSeen, l.sm.matchCount)
		case <-time.After(pollTimeout):
			// no descriptor was ready; loop back and re-check stop.
		}
	}
}

// handleChildExit reacts to the running child's stdout closing without
// the controller having asked it to stop — a crash or an unexpected EOF
// both surface here — by recording the error kind and demoting back to
// Idle, per spec.md §4.7 and §7.
func (l *Loop) handleChildExit(err error) {
	log.Printf("control: child exited unexpectedly: %v", err)
	l.sm.errorKind = verrors.KindChildIO
	if tErr := l.sm.TransitionTo(Idle); tErr != nil {
		log.Printf("control: demote to idle after child exit: %v", tErr)
	}
}

func (l *Loop) dispatchChildLine(line ChildLine) {
	switch {
	case line.IsReady:
		if err := l.sm.emitStatus(); err != nil {
			log.Printf("control: ready status: %v", err)
		}
		if l.pub != nil {
			l.pub.Publish(telemetry.NewStatusEvent(l.pub.DeviceID(), line.Ready, l.sm.mode.String(), l.sm.errorKind.String()))
		}
	case line.Match:
		l.sm.matchCount++
		if l.pub != nil {
			l.pub.Publish(telemetry.NewPredictionEvent(l.pub.DeviceID(), line.Name, line.Score, line.Count))
		}
		index, err := strconv.Atoi(line.Name)
		if err != nil || index < 0 || index >= l.sm.catalog.Len() {
			log.Printf("control: match for unknown model %q", line.Name)
			return
		}
		payload, err := serial.EncodeWwMatch(serial.WwMatchPayload{
			Index: uint8(index), Score: line.Score, Count: uint8(line.Count),
		})
		if err != nil {
			log.Printf("control: encode match: %v", err)
			return
		}
		if err := l.codec.WriteFrame(serial.NewFrame(serial.WwMatch, payload)); err != nil {
			log.Printf("control: write match: %v", err)
		}
	}
}

// Stop signals Run to exit and blocks until it does.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}
