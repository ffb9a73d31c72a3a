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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBridgeDefaultsDevice(t *testing.T) {
	cfg, err := ParseBridge(nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Device)
}

func TestParseBridgeOverridesAllFlags(t *testing.T) {
	cfg, err := ParseBridge([]string{
		"--device=/dev/ttyUSB0",
		"--int=gpiochip0:17",
		"--led=gpiochip0:27",
		"--wwmodeldir=/opt/ww",
		"--basemodeldir=/opt/base",
		"--nats=nats://localhost:4222",
	})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, "gpiochip0:17", cfg.IntPin)
	assert.Equal(t, "gpiochip0:27", cfg.LEDPin)
	assert.Equal(t, "/opt/ww", cfg.WwModelDir)
	assert.Equal(t, "/opt/base", cfg.BaseModelDir)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS)
}
