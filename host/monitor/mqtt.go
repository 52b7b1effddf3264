// Package monitor publishes bench telemetry for operators: an MQTT stream
// for other tools, a small web API with a websocket live feed, and a CSV
// recorder for offline analysis.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"heartbench/telemetry"
)

// Publisher streams feedback samples and session state changes to an MQTT
// broker. Topics are <prefix>/feedback and <prefix>/state.
type Publisher struct {
	client mqtt.Client
	prefix string
}

// NewPublisher connects to the broker. broker is a paho URL such as
// tcp://localhost:1883.
func NewPublisher(broker, clientID, topicPrefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("monitor: connected to MQTT broker at %s", broker)

	return &Publisher{client: client, prefix: topicPrefix}, nil
}

// PublishState reports a session state change.
func (p *Publisher) PublishState(state string) {
	payload, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return
	}
	p.client.Publish(p.prefix+"/state", 0, true, payload)
}

// Run polls the ring and publishes every sample it has not yet seen, until
// the context is canceled. Samples are published individually as JSON.
func (p *Publisher) Run(ctx context.Context, ring *telemetry.Ring, poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastTick uint32
	var seen bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var fresh []telemetry.Sample
			if seen {
				fresh = ring.Since(lastTick)
			} else {
				fresh = ring.Snapshot()
			}
			for _, s := range fresh {
				payload, err := json.Marshal(s)
				if err != nil {
					log.Printf("monitor: sample marshal error: %v", err)
					continue
				}
				p.client.Publish(p.prefix+"/feedback", 0, false, payload)
				lastTick = s.Tick
				seen = true
			}
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
