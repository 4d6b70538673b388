// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/rotary_encoder/internal/encoder"
)

// publisher is the part of the MQTT client the producer needs.
type publisher interface {
	Publish(topic string, payload []byte) error
}

type mqttPublisher struct {
	client mqtt.Client
}

// Publish sends a retained QoS 0 message and waits for it to leave.
func (p mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// subscribeSamples decodes every message on topic as an encoder.Sample and
// hands it to fn. Undecodable payloads are logged and dropped.
func subscribeSamples(client mqtt.Client, topic, component string, fn func(encoder.Sample)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s encoder.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("%s: sample unmarshal error: %v", component, err)
			return
		}
		fn(s)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}
