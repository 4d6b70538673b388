package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/encoder"
)

// formatSample renders one console line.
func formatSample(tag string, s encoder.Sample) string {
	return fmt.Sprintf(
		"[%s] count=%5d deg=%7.2f rad=%6.4f turns=%9.3f full=%6d rpm=%8.2f (inst %8.2f)",
		tag, s.Count, s.AngleDeg, s.AngleRad, s.Turns, s.FullTurns, s.RPM, s.InstantRPM,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeSamples(client, cfg.TopicEncoder, "console", func(s encoder.Sample) {
		fmt.Println(formatSample("ENC", s))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
