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
	"fmt"
	"io"
	"log"
	"time"

	"github.com/vozlabs/voz/internal/serial"
	"github.com/vozlabs/voz/internal/verrors"
)

// modeChangeSettle is how long the state machine waits after spawning a
// child before it's assumed to have come up, per spec.md §4.7.
const modeChangeSettle = 750 * time.Millisecond

// Spawner starts the child executable for a mode. Production code binds
// this to os/exec via Start; tests substitute a fake that never touches
// the filesystem.
type Spawner func(mode Mode, args []string) (Child, error)

// ExecSpawner resolves mode to one of the two detector binaries and
// starts it with args plus the mode's fixed flags.
func ExecSpawner(wakewordExe, preprocessorExe string, stderr io.Writer) Spawner {
	return func(mode Mode, args []string) (Child, error) {
		switch mode {
		case WakeWord:
			return Start(wakewordExe, append([]string{"--output=machine"}, args...), stderr)
		case Preprocessor:
			return Start(preprocessorExe, append([]string{"--output=machine"}, args...), stderr)
		default:
			return nil, verrors.New(verrors.KindConfig, "control: no child for mode %s", mode)
		}
	}
}

// StateMachine is the bridge's {Idle,WakeWord,Preprocessor} controller.
// It owns the current child, the audio configuration and the wake-word
// catalog, and reacts to frames read off the UART codec.
type StateMachine struct {
	codec        *serial.Codec
	spawn        Spawner
	catalog      *Catalog
	baseModelDir string
	audioConf    serial.AudioConfPayload
	mode         Mode
	child      Child
	errorKind  verrors.Kind
	refracLeft int
	startedAt  time.Time
	framesSeen uint32
	matchCount uint16
	now        func() time.Time
}

// New builds a StateMachine in Idle with the given catalog.
func New(codec *serial.Codec, spawn Spawner, catalog *Catalog) *StateMachine {
	return &StateMachine{
		codec:     codec,
		spawn:     spawn,
		catalog:   catalog,
		audioConf: serial.AudioConfPayload{Preamp: 1},
		mode:      Idle,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Mode returns the current mode.
func (sm *StateMachine) Mode() Mode { return sm.mode }

// SetBaseModelDir records the directory the WakeWord-mode child resolves
// its mel-spectrogram/embedding models from, per spec.md §6's
// --basemodeldir.
func (sm *StateMachine) SetBaseModelDir(dir string) { sm.baseModelDir = dir }

// TransitionTo stops the current child (if any), updates state and
// spawns the child for mode (Idle spawns nothing), waits for it to
// settle and emits a fresh Status, per spec.md §4.7.
func (sm *StateMachine) TransitionTo(mode Mode) error {
	if sm.child != nil {
		if err := sm.child.Stop(); err != nil {
			sm.errorKind = verrors.KindChildIO
			log.Printf("control: stop child: %v", err)
		}
		sm.child = nil
	}

	sm.mode = mode
	if mode != Idle {
		child, err := sm.spawn(mode, sm.buildArgs(mode))
		if err != nil {
			sm.errorKind = verrors.KindOf(err)
			sm.mode = Idle
			return err
		}
		sm.child = child
		time.Sleep(modeChangeSettle)
	}
	return sm.emitStatus()
}

// buildArgs assembles the child command line from the current AudioConf,
// plus, for WakeWord mode only, the enabled catalog entries' MODELSPEC
// arguments, per spec.md §4.7.
func (sm *StateMachine) buildArgs(mode Mode) []string {
	args := []string{
		fmt.Sprintf("--preamp=%g", sm.audioConf.Preamp),
		fmt.Sprintf("--noiser=%d", sm.audioConf.Noiser),
		fmt.Sprintf("--autogain=%d", sm.audioConf.AutoGain),
	}
	switch mode {
	case WakeWord:
		if sm.baseModelDir != "" {
			args = append(args, "--modelsdir="+sm.baseModelDir)
		}
		args = append(args, sm.catalog.ChildArgs()...)
	case Preprocessor:
		if sm.audioConf.VAD != 0 {
			args = append(args, "--vad")
		}
	}
	return args
}

func (sm *StateMachine) emitStatus() error {
	var ready uint8
	if sm.mode == Idle || sm.child != nil {
		ready = 1
	}
	uptime := uint32(sm.now().Sub(sm.startedAt).Seconds())
	payload, err := serial.EncodeStatus(serial.StatusPayload{
		Mode:            uint8(sm.mode),
		Ready:           ready,
		ErrorKind:       uint8(sm.errorKind),
		UptimeSec:       uptime,
		FramesProcessed: uint16(sm.framesSeen),
		MatchCount:      sm.matchCount,
		WakewordMask:    sm.catalog.EnabledMask(),
	})
	if err != nil {
		return err
	}
	return sm.codec.WriteFrame(serial.NewFrame(serial.Status, payload))
}

// HandleFrame dispatches an inbound frame per spec.md §4.7.
func (sm *StateMachine) HandleFrame(f *serial.Frame) error {
	switch f.EventID {
	case serial.Nop:
		return nil
	case serial.Mode:
		if len(f.Payload) < 1 {
			return verrors.New(verrors.KindFrameFormat, "control: Mode frame missing payload")
		}
		return sm.TransitionTo(Mode(f.Payload[0]))
	case serial.Config:
		conf, err := serial.DecodeAudioConf(f.Payload)
		if err != nil {
			return err
		}
		sm.audioConf = conf
		return sm.emitStatus()
	case serial.Areset:
		refrac := 0
		if len(f.Payload) >= 1 {
			refrac = int(f.Payload[0])
		}
		sm.refracLeft = refrac
		log.Printf("control: reset, dropping next %d audio frames", refrac)
		if sm.child != nil {
			if err := sm.child.Reset(); err != nil {
				log.Printf("control: signal child reset: %v", err)
			}
		}
		return nil
	case serial.Reboot:
		return sm.TransitionTo(Idle)
	case serial.Audio, serial.BAudio:
		return sm.ForwardAudio(f.Payload)
	case serial.WwList:
		return sm.handleWwList(f)
	case serial.WwConf:
		return sm.handleWwConf(f)
	default:
		log.Printf("control: unhandled event %s", f.EventID)
		return nil
	}
}

func (sm *StateMachine) handleWwList(f *serial.Frame) error {
	clear := len(f.Payload) >= 1 && f.Payload[0] != 0
	if clear {
		sm.catalog.ClearAll()
	}
	for i, e := range sm.catalog.Entries() {
		payload, err := serial.EncodeWwStatus(e.Name, serial.WwConfPayload{
			Index: uint8(i), Enabled: boolByte(e.Enabled), Threshold: e.Threshold, Patience: e.Patience,
		})
		if err != nil {
			return err
		}
		if err := sm.codec.WriteFrame(serial.NewFrame(serial.WwStatus, payload)); err != nil {
			return err
		}
	}
	return sm.emitStatus()
}

func (sm *StateMachine) handleWwConf(f *serial.Frame) error {
	conf, err := serial.DecodeWwConf(f.Payload)
	if err != nil {
		return err
	}
	if err := sm.catalog.Configure(int(conf.Index), conf.Enabled != 0, conf.Threshold, conf.Patience); err != nil {
		return err
	}
	entry, err := sm.catalog.Entry(int(conf.Index))
	if err != nil {
		return err
	}
	echo, err := serial.EncodeWwStatus(entry.Name, conf)
	if err != nil {
		return err
	}
	if err := sm.codec.WriteFrame(serial.NewFrame(serial.WwStatus, echo)); err != nil {
		return err
	}
	if sm.mode == WakeWord {
		return sm.TransitionTo(WakeWord)
	}
	return nil
}

// ForwardAudio writes an audio payload to the running child, unless a
// pending Areset refractory period is still dropping frames. A write
// failure demotes the controller straight to Idle and records the
// error kind, per spec.md §7's "child I/O errors demote the controller
// to Idle and emit a Status carrying the kind".
func (sm *StateMachine) ForwardAudio(payload []byte) error {
	sm.framesSeen++
	if sm.refracLeft > 0 {
		sm.refracLeft--
		return nil
	}
	if sm.child == nil {
		return nil
	}
	if err := sm.child.WriteAudio(payload); err != nil {
		log.Printf("control: write child audio: %v", err)
		sm.errorKind = verrors.KindChildIO
		return sm.TransitionTo(Idle)
	}
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
