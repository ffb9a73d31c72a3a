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

package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Conn is the subset of *nats.Conn a Publisher needs, so tests can
// substitute a fake instead of dialing a broker, matching the teacher's
// PuckNATSConnection seam.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsConnAdapter struct {
	conn *nats.Conn
}

func (a *natsConnAdapter) Publish(subject string, data []byte) error {
	return a.conn.Publish(subject, data)
}

func (a *natsConnAdapter) Close() { a.conn.Close() }

// Publisher publishes Events to `events.<deviceID>` and
// `events.broadcast`, never blocking its caller.
type Publisher struct {
	conn     Conn
	deviceID string
}

// Connect dials url with the teacher's connect-with-retry loop (5
// attempts, 2s backoff) and returns a Publisher for deviceID.
func Connect(url, deviceID string) (*Publisher, error) {
	var nc *nats.Conn
	var err error
	for i := 0; i < connectAttempts; i++ {
		nc, err = nats.Connect(url)
		if err == nil {
			break
		}
		log.Printf("telemetry: connect to %s failed (attempt %d/%d): %v", url, i+1, connectAttempts, err)
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: connect to %s: %w", url, err)
	}
	return &Publisher{conn: &natsConnAdapter{conn: nc}, deviceID: deviceID}, nil
}

// NewWithConn builds a Publisher over an existing Conn, for tests.
func NewWithConn(conn Conn, deviceID string) *Publisher {
	return &Publisher{conn: conn, deviceID: deviceID}
}

// Publish marshals ev and fires it at both the device-specific and
// broadcast subjects in a background goroutine; failures are logged, not
// returned, since telemetry must never hold up the control loop.
func (p *Publisher) Publish(ev Event) {
	ev.DeviceID = p.deviceID
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("telemetry: marshal event: %v", err)
		return
	}
	go func() {
		if err := p.conn.Publish(fmt.Sprintf("events.%s", p.deviceID), data); err != nil {
			log.Printf("telemetry: publish to device subject: %v", err)
		}
		if err := p.conn.Publish("events.broadcast", data); err != nil {
			log.Printf("telemetry: publish to broadcast subject: %v", err)
		}
	}()
}

// DeviceID returns the device identifier events are published under.
func (p *Publisher) DeviceID() string { return p.deviceID }

// Close closes the underlying connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
