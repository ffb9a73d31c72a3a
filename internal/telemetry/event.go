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

// Package telemetry publishes Status and prediction events to NATS,
// best-effort, when a Serial Bridge or Detector is started with
// --nats=URL. Disabled by default; the control loop and detector never
// wait on it.
package telemetry

// Event is the JSON envelope published to NATS: a superset of the
// human/machine/json output formats in spec.md §6 plus the fields a
// consumer needs to tell devices apart.
type Event struct {
	Event     string  `json:"event"`
	DeviceID  string  `json:"device_id"`
	SessionID string  `json:"session_id,omitempty"`
	Wakeword  string  `json:"wakeword,omitempty"`
	Prob      float32 `json:"prob,omitempty"`
	Count     int     `json:"cnt,omitempty"`
	Ready     *bool   `json:"ready,omitempty"`
	Mode      string  `json:"mode,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
}

// NewPredictionEvent builds a "prediction" event.
func NewPredictionEvent(deviceID, wakeword string, prob float32, count int) Event {
	return Event{Event: "prediction", DeviceID: deviceID, Wakeword: wakeword, Prob: prob, Count: count}
}

// NewStatusEvent builds a "status" event.
func NewStatusEvent(deviceID string, ready bool, mode, errorKind string) Event {
	return Event{Event: "status", DeviceID: deviceID, Ready: &ready, Mode: mode, ErrorKind: errorKind}
}
