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

// Package config parses and validates the CLI flags for all three
// binaries (spec.md §6): the Detector's MODELSPEC positional arguments,
// the Preprocessor's DSP flags, and the Serial Bridge's device/GPIO
// flags.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vozlabs/voz/internal/wakeword"
)

const (
	defaultModelName      = "no_name"
	defaultThreshold      = 0.5
	defaultPatience       = 1
)

// ParseModelSpec parses one `path[:name[:threshold[:patience]]]`
// positional argument into a wakeword.Config.
func ParseModelSpec(spec string) (wakeword.Config, error) {
	parts := strings.Split(spec, ":")
	if len(parts) == 0 || parts[0] == "" {
		return wakeword.Config{}, fmt.Errorf("config: empty MODELSPEC")
	}

	cfg := wakeword.Config{
		Path:      parts[0],
		Name:      defaultModelName,
		Threshold: defaultThreshold,
		Patience:  defaultPatience,
	}
	if len(parts) > 1 && parts[1] != "" {
		cfg.Name = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		t, err := strconv.ParseFloat(parts[2], 32)
		if err != nil {
			return wakeword.Config{}, fmt.Errorf("config: MODELSPEC %q: bad threshold: %w", spec, err)
		}
		cfg.Threshold = float32(t)
	}
	if len(parts) > 3 && parts[3] != "" {
		p, err := strconv.Atoi(parts[3])
		if err != nil {
			return wakeword.Config{}, fmt.Errorf("config: MODELSPEC %q: bad patience: %w", spec, err)
		}
		cfg.Patience = p
	}
	if len(parts) > 4 {
		return wakeword.Config{}, fmt.Errorf("config: MODELSPEC %q: too many ':'-separated fields", spec)
	}
	return cfg, nil
}

// ParseModelSpecs parses every positional MODELSPEC argument.
func ParseModelSpecs(specs []string) ([]wakeword.Config, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("config: at least one MODELSPEC is required")
	}
	cfgs := make([]wakeword.Config, 0, len(specs))
	for _, s := range specs {
		cfg, err := ParseModelSpec(s)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}
