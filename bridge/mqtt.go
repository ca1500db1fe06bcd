package bridge

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// DialMQTT connects to an MQTT broker.
func DialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, token.Error())
	}

	return c, nil
}

// MQTTEntity is an entity whose properties arrive on MQTT topics under a
// prefix. A message on "<prefix>/room/temp" with a number as payload sets
// the property "room.temp". A JSON object payload sets one property per
// numeric field, as in "room.temp.humidity".
type MQTTEntity struct {
	*calc.MapEntity

	prefix string
}

// NewMQTTEntity subscribes to every topic under the prefix.
func NewMQTTEntity(client mqtt.Client, prefix string) (*MQTTEntity, error) {
	e := &MQTTEntity{
		MapEntity: calc.NewMapEntity(),
		prefix:    strings.TrimSuffix(prefix, "/"),
	}

	token := client.Subscribe(e.prefix+"/#", 0, e.onMessage)
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", e.prefix, token.Error())
	}

	return e, nil
}

func (e *MQTTEntity) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := e.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
		log.Printf("mqtt entity %s: %v", e.prefix, err)
	}
}

// HandleMessage updates the properties carried by one message.
func (e *MQTTEntity) HandleMessage(topic string, payload []byte) error {
	name := strings.TrimPrefix(topic, e.prefix+"/")
	if name == topic || name == "" {
		return fmt.Errorf("topic %s is not under %s", topic, e.prefix)
	}

	name = strings.ReplaceAll(name, "/", ".")
	text := strings.TrimSpace(string(payload))

	if v, err := strconv.ParseFloat(text, 64); err == nil {
		e.Set(name, v)
		return nil
	}

	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return fmt.Errorf("topic %s: payload is neither a number "+
			"nor a JSON object", topic)
	}

	for k, raw := range fields {
		switch v := raw.(type) {
		case float64:
			e.Set(name+"."+k, v)
		case bool:
			if v {
				e.Set(name+"."+k, 1)
			} else {
				e.Set(name+"."+k, 0)
			}
		}
	}

	return nil
}

// MQTTPublisher publishes the output of every node after each sweep, one
// retained message per node on "<prefix>/<controller>/<node>".
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTTPublisher creates a publisher.
func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

// SweepCompleted publishes the node values.
func (p *MQTTPublisher) SweepCompleted(c *calc.Controller, _ sim.VTimeInSec) error {
	for _, n := range c.BoundNodes() {
		topic := fmt.Sprintf("%s/%s/%s", p.prefix, c.Name(), n.Name())
		payload := strconv.FormatFloat(n.LastValue(), 'g', -1, 64)

		token := p.client.Publish(topic, p.qos, true, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
	}

	return nil
}
