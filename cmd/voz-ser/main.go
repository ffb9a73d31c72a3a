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

// voz-ser supervises a Detector or Preprocessor child over spec.md §4.7's
// framed serial protocol, driving the host's LED and interrupt lines.
package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vozlabs/voz/internal/config"
	"github.com/vozlabs/voz/internal/control"
	"github.com/vozlabs/voz/internal/gpio"
	"github.com/vozlabs/voz/internal/rollbuffer"
	"github.com/vozlabs/voz/internal/serial"
	"github.com/vozlabs/voz/internal/telemetry"
)

func main() {
	cfg, err := config.ParseBridge(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(config.ExitFatal))
	}

	code, err := run(cfg)
	if err != nil {
		log.Printf("voz-ser: %v", err)
	}
	os.Exit(int(code))
}

func run(cfg config.BridgeConfig) (config.ExitCode, error) {
	port, err := serial.OpenPort(cfg.Device)
	if err != nil {
		return config.ExitRestartRetry, fmt.Errorf("open serial port: %w", err)
	}
	defer port.Close()

	catalog, err := control.LoadCatalog(cfg.WwModelDir)
	if err != nil {
		return config.ExitFatal, fmt.Errorf("load wake-word catalog: %w", err)
	}

	wakewordExe, err := resolveExe("voz-oww")
	if err != nil {
		return config.ExitFatal, err
	}
	preprocessorExe, err := resolveExe("voz-pre")
	if err != nil {
		return config.ExitFatal, err
	}
	spawn := control.ExecSpawner(wakewordExe, preprocessorExe, os.Stderr)

	sm := control.New(port.Codec, spawn, catalog)
	sm.SetBaseModelDir(cfg.BaseModelDir)
	loop := control.NewLoop(sm, port.Codec)

	ledWorker, ledQueue, closeGPIO, err := setupGPIO(cfg)
	if err != nil {
		return config.ExitFatal, fmt.Errorf("init gpio: %w", err)
	}
	defer closeGPIO()
	if ledWorker != nil {
		go ledWorker.Run()
		defer ledQueue.Cancel()
	}

	if cfg.NATS != "" {
		pub, err := telemetry.Connect(cfg.NATS, deviceID())
		if err != nil {
			log.Printf("voz-ser: telemetry disabled: %v", err)
		} else {
			defer pub.Close()
			loop.SetPublisher(pub)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	chldCh := make(chan os.Signal, 1)
	signal.Notify(chldCh, syscall.SIGCHLD)

	requested := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				close(requested)
				loop.Stop()
				return
			case <-chldCh:
				log.Printf("voz-ser: received SIGCHLD")
			}
		}
	}()

	loop.Run()

	select {
	case <-requested:
		return config.ExitRequested, nil
	default:
		return config.ExitOK, nil
	}
}

// resolveExe looks for name next to the currently running binary before
// falling back to $PATH, so a deployed bundle of voz-oww/voz-pre/voz-ser
// in one directory needs no separate install step.
func resolveExe(name string) (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return path, nil
}

// gpioQueueCapacity is generous headroom for the LED/interrupt command
// queue. The queue is not handed to the control loop; run() only starts
// the worker and cancels the queue on exit.
const gpioQueueCapacity = 16

// setupGPIO opens the configured LED and interrupt lines and builds the
// single worker spec.md §4.6 describes; the caller starts it. When only
// one pin is configured it drives both roles; when neither is, no worker
// is built and the returned worker and queue are nil.
func setupGPIO(cfg config.BridgeConfig) (*gpio.Worker, *gpio.Queue, func(), error) {
	if cfg.LEDPin == "" && cfg.IntPin == "" {
		return nil, nil, func() {}, nil
	}

	var led, interrupt gpio.Pin
	var err error
	if cfg.LEDPin != "" {
		led, err = gpio.Open(cfg.LEDPin)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open led pin %s: %w", cfg.LEDPin, err)
		}
	}
	if cfg.IntPin != "" {
		interrupt, err = gpio.Open(cfg.IntPin)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open interrupt pin %s: %w", cfg.IntPin, err)
		}
	}
	if led == nil {
		led = interrupt
	}
	if interrupt == nil {
		interrupt = led
	}

	queue := rollbuffer.NewSync[gpio.Command](gpioQueueCapacity, false)
	worker := gpio.NewWorker(led, interrupt, queue, 0, 0)
	return worker, queue, func() {}, nil
}

func deviceID() string {
	if id := os.Getenv("VOZ_DEVICE_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		return "voz-ser"
	}
	return host
}
