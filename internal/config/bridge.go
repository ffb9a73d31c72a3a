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

import "flag"

const defaultSerialDevice = "/dev/ttyS1"

// BridgeConfig holds the parsed and validated flags for voz-ser.
type BridgeConfig struct {
	Device       string
	IntPin       string
	LEDPin       string
	WwModelDir   string
	BaseModelDir string
	NATS         string
}

// ParseBridge parses argv into a BridgeConfig.
func ParseBridge(argv []string) (BridgeConfig, error) {
	fs := flag.NewFlagSet("voz-ser", flag.ContinueOnError)
	device := fs.String("device", defaultSerialDevice, "UART device path")
	intPin := fs.String("int", "", "interrupt GPIO line, gpiochipN:line")
	ledPin := fs.String("led", "", "LED GPIO line, gpiochipN:line")
	wwModelDir := fs.String("wwmodeldir", "", "wake-word model directory")
	baseModelDir := fs.String("basemodeldir", "", "base/embedding model directory")
	natsURL := fs.String("nats", "", "publish events to this NATS URL")

	if err := fs.Parse(argv); err != nil {
		return BridgeConfig{}, err
	}

	return BridgeConfig{
		Device:       *device,
		IntPin:       *intPin,
		LEDPin:       *ledPin,
		WwModelDir:   *wwModelDir,
		BaseModelDir: *baseModelDir,
		NATS:         *natsURL,
	}, nil
}

// ExitCode maps a bridge-level failure to the exit codes spec.md §6
// defines: 0 normal, 1 restart, 2 restart-with-retry, 5 fatal, 6
// requested (SIGTERM/INT).
type ExitCode int

const (
	ExitOK           ExitCode = 0
	ExitRestart      ExitCode = 1
	ExitRestartRetry ExitCode = 2
	ExitFatal        ExitCode = 5
	ExitRequested    ExitCode = 6
)
