package telemetry

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// MQTTBroker is a Broker backed by a paho client.
type MQTTBroker struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

// DialMQTT connects to broker (e.g. "tcp://localhost:1883").
func DialMQTT(broker, clientID string) (*MQTTBroker, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	// handlers publish replies, which waits on a token
	opts.SetOrderMatters(false)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		glog.Infof("connected to MQTT broker %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		glog.Warningf("MQTT connection lost: %v", err)
	}

	b := &MQTTBroker{client: mqtt.NewClient(opts), timeout: 5 * time.Second}
	token := b.client.Connect()
	if !token.WaitTimeout(b.timeout) {
		return nil, fmt.Errorf("telemetry: connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", broker, err)
	}
	return b, nil
}

// Publish sends payload to topic and waits for it to leave.
func (b *MQTTBroker) Publish(topic string, payload []byte) error {
	return b.wait(b.client.Publish(topic, b.qos, false, payload))
}

// Subscribe delivers each message on topic to handler.
func (b *MQTTBroker) Subscribe(topic string, handler func(payload []byte)) error {
	return b.wait(b.client.Subscribe(topic, b.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	}))
}

func (b *MQTTBroker) wait(token mqtt.Token) error {
	if !token.WaitTimeout(b.timeout) {
		return fmt.Errorf("mqtt: timed out after %v", b.timeout)
	}
	return token.Error()
}

// Close disconnects, allowing in-flight messages a moment to drain.
func (b *MQTTBroker) Close() {
	b.client.Disconnect(250)
}
