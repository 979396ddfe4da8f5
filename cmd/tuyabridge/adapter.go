package main

import "github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"

// mqttBridgeAdapter adapts the infrastructure MQTT client to tuya.MQTTClient.
// The difference is the handler signature: the infrastructure client takes
// handlers that return an error, the bridge's handlers do not.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements tuya.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
