// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/mt6701"
	"github.com/relabs-tech/rotary_encoder/internal/sensors"
	"github.com/relabs-tech/rotary_encoder/internal/telemetry"
)

// producer runs one encoder update per tick and fans the sample out to MQTT
// and, when configured, the serial link.
type producer struct {
	src         sensors.EncoderSource
	pub         publisher
	topic       string
	link        io.Writer
	logInterval time.Duration
	lastLog     time.Time
}

func (p *producer) step(t time.Time) {
	if err := p.src.Update(); err != nil {
		if errors.Is(err, mt6701.ErrReadFailed) {
			log.Printf("encoder: cycle skipped: %v", err)
		} else {
			log.Printf("encoder: update error: %v", err)
		}
		return
	}

	sample := p.src.Sample()
	payload, err := json.Marshal(sample)
	if err != nil {
		log.Printf("encoder: json marshal error: %v", err)
		return
	}
	if err := p.pub.Publish(p.topic, payload); err != nil {
		log.Printf("encoder: MQTT publish error (%s): %v", p.topic, err)
	}

	if p.link != nil {
		if _, err := io.WriteString(p.link, telemetry.Encode(sample)); err != nil {
			log.Printf("encoder: serial write error: %v", err)
		}
	}

	if t.Sub(p.lastLog) >= p.logInterval {
		p.lastLog = t
		st := p.src.Stats()
		log.Printf("%s tick: count=%d deg=%.2f turns=%.3f rpm=%.2f | updates=%d retries=%d skipped=%d outliers=%d",
			t.Format(time.RFC3339), sample.Count, sample.AngleDeg, sample.Turns, sample.RPM,
			st.Updates, st.Retries, st.Skipped, st.Outliers)
	}
}

// RunEncoderProducer polls the encoder at ENCODER_UPDATE_INTERVAL and
// publishes each sample until SIGINT or SIGTERM.
func RunEncoderProducer() error {
	cfg := config.Get()
	clk := clock.New()

	src, err := sensors.NewEncoderSource(clk)
	if err != nil {
		return err
	}
	defer src.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("encoder: connected to MQTT broker at %s", cfg.MQTTBroker)

	p := &producer{
		src:         src,
		pub:         mqttPublisher{client: client},
		topic:       cfg.TopicEncoder,
		logInterval: time.Duration(cfg.ConsoleLogInterval) * time.Millisecond,
	}

	if cfg.SerialPort != "" {
		port, err := openSerial(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return fmt.Errorf("serial open %s: %w", cfg.SerialPort, err)
		}
		defer port.Close()
		p.link = port
		log.Printf("encoder: serial telemetry on %s at %d baud", cfg.SerialPort, cfg.SerialBaudRate)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := clk.Ticker(time.Duration(cfg.EncoderUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("encoder: starting publish loop")
	for {
		select {
		case t := <-ticker.C:
			p.step(t)
		case <-sigCh:
			log.Println("encoder: shutting down")
			return nil
		}
	}
}
