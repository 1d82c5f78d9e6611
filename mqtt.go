package rfdecode

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MQTTPublisher publishes decoded messages, and optionally metric
// snapshots, to an MQTT broker.
type MQTTPublisher struct {
	client mqtt.Client
	config *MQTTConfig
}

func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "rfdecode_" + hex.EncodeToString(bytes)
}

func loadTLSConfig(tlsConfig MQTTTLSConfig) (*tls.Config, error) {
	if !tlsConfig.Enabled {
		return nil, nil
	}

	config := &tls.Config{}

	if tlsConfig.CACert != "" {
		caCert, err := os.ReadFile(tlsConfig.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = caCertPool
	}

	if tlsConfig.ClientCert != "" && tlsConfig.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.ClientCert, tlsConfig.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// NewMQTTPublisher connects to the broker described by config.
func NewMQTTPublisher(config *MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if config.TLS.Enabled {
		tlsConfig, err := loadTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("[MQTT] Connected to broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("[MQTT] Connected to broker: %s", config.Broker)
	return &MQTTPublisher{client: client, config: config}, nil
}

// PublishMessage publishes one decoded message as JSON on
// <prefix>/messages/<decoder-id>.
func (p *MQTTPublisher) PublishMessage(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	topic := fmt.Sprintf("%s/messages/%s", p.config.TopicPrefix, msg.DecoderID)
	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// MetricSnapshot is the JSON payload for one published metric family.
type MetricSnapshot struct {
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
	Labels    map[string]string  `json:"labels,omitempty"`
}

// PublishMetrics gathers the current pipeline metrics and publishes one
// snapshot per metric/label combination on <prefix>/metrics/<name>.
func (p *MQTTPublisher) PublishMetrics(gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	now := time.Now().Unix()
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			snapshot := MetricSnapshot{
				Timestamp: now,
				Metrics:   map[string]float64{family.GetName(): metricValue(metric)},
			}
			if labels := metric.GetLabel(); len(labels) > 0 {
				snapshot.Labels = make(map[string]string, len(labels))
				for _, l := range labels {
					snapshot.Labels[l.GetName()] = l.GetValue()
				}
			}

			payload, err := json.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("failed to marshal metric snapshot: %w", err)
			}
			topic := fmt.Sprintf("%s/metrics/%s", p.config.TopicPrefix, family.GetName())
			if token := p.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
				return token.Error()
			}
		}
	}
	return nil
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetHistogram() != nil:
		return m.GetHistogram().GetSampleSum()
	default:
		return 0
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
	log.Println("[MQTT] Disconnected")
}
