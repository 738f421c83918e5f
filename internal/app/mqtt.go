// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/logging"
)

// publisher is the part of mqtt.Client the runtimes publish through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// connectMQTT connects to the configured broker or returns the connect error.
func connectMQTT(cfg *config.Config, clientID, component string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("%s: MQTT connection lost: %v", component, err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.MQTTBroker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s as %s", component, cfg.MQTTBroker, clientID)
	return client, nil
}

// subscribe registers handler on topic and waits for the broker to ack.
func subscribe(client mqtt.Client, topic, component string, handler func(payload []byte)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}

// publishJSON marshals v and publishes it without waiting for delivery.
// Delivery errors are logged when the token completes.
func publishJSON(pub publisher, topic string, retained bool, v any, component string) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("%s: %s marshal error: %v", component, topic, err)
		return
	}
	publishPayload(pub, topic, retained, payload, component)
}

// publishPayload publishes an already encoded payload without waiting.
func publishPayload(pub publisher, topic string, retained bool, payload []byte, component string) {
	token := pub.Publish(topic, 0, retained, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			log.Printf("%s: %s publish error: %v", component, topic, err)
		}
	}()
}

func setupLogging(cfg *config.Config) io.Closer {
	return logging.Setup(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}
