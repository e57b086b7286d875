// Package mqttfeed connects the lamp to its MQTT control and presence feeds.
package mqttfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/presencelamp/presencelamp-go/internal/engine"
	"github.com/presencelamp/presencelamp-go/internal/services/pubsub"
)

// Handler is the engine surface the feed drives.
type Handler interface {
	HandleCommand(cmd engine.Command)
	HandleGeofence(payload string)
	Snapshot() engine.Snapshot
}

// Config holds MQTT feed configuration.
type Config struct {
	Broker       string
	Username     string
	Key          string
	ClientID     string
	CommandFeed  string
	GeofenceFeed string
	StateFeed    string
}

// Service owns the MQTT session, its subscriptions, and state publishing.
type Service struct {
	cfg     Config
	handler Handler
	ps      *pubsub.PubSub
	client  mqtt.Client

	stopChan chan struct{}
}

// NewService creates a new MQTT feed service.
func NewService(cfg Config, handler Handler, ps *pubsub.PubSub) *Service {
	if cfg.ClientID == "" {
		cfg.ClientID = "presencelamp"
	}
	return &Service{
		cfg:      cfg,
		handler:  handler,
		ps:       ps,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes the broker session and subscriptions, then starts
// forwarding snapshots from pubsub to the state feed.
func (s *Service) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Key)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		log.Printf("📨 MQTT connected to %s", s.cfg.Broker)
		s.subscribe(c)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Printf("📨 MQTT connection lost, will auto-reconnect: %v", err)
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	go s.forwardSnapshots()

	return nil
}

// subscribe registers the feed subscriptions. Called on every (re)connect so
// subscriptions survive broker restarts.
func (s *Service) subscribe(c mqtt.Client) {
	if s.cfg.CommandFeed != "" {
		token := c.Subscribe(s.cfg.CommandFeed, 1, s.onCommand)
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			log.Printf("📨 Subscribed to command feed %s", s.cfg.CommandFeed)
		} else {
			log.Printf("📨 Command feed subscription failed: %v", token.Error())
		}
	}
	if s.cfg.GeofenceFeed != "" {
		token := c.Subscribe(s.cfg.GeofenceFeed, 1, s.onGeofence)
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			log.Printf("📨 Subscribed to geofence feed %s", s.cfg.GeofenceFeed)
		} else {
			log.Printf("📨 Geofence feed subscription failed: %v", token.Error())
		}
	}
}

// onCommand decodes one command message. Malformed payloads are dropped
// without surfacing an error over the wire.
func (s *Service) onCommand(_ mqtt.Client, msg mqtt.Message) {
	var cmd engine.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("📨 Ignoring malformed command payload: %v", err)
		return
	}

	if cmd.Action == "getstate" {
		// Answer the requester directly; state transitions publish on their
		// own through pubsub.
		s.PublishSnapshot(s.handler.Snapshot())
		return
	}

	s.handler.HandleCommand(cmd)
}

// onGeofence forwards one presence event. The payload is free text.
func (s *Service) onGeofence(_ mqtt.Client, msg mqtt.Message) {
	s.handler.HandleGeofence(string(msg.Payload()))
}

// forwardSnapshots pipes snapshot broadcasts to the state feed.
func (s *Service) forwardSnapshots() {
	sub := s.ps.Subscribe(pubsub.TopicSnapshot, 16)
	defer s.ps.Unsubscribe(sub)

	for {
		select {
		case <-s.stopChan:
			return
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			if snap, ok := msg.(engine.Snapshot); ok {
				s.PublishSnapshot(snap)
			}
		}
	}
}

// PublishSnapshot publishes one snapshot to the state feed.
func (s *Service) PublishSnapshot(snap engine.Snapshot) {
	if s.cfg.StateFeed == "" || s.client == nil || !s.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("📨 Snapshot marshal failed: %v", err)
		return
	}

	token := s.client.Publish(s.cfg.StateFeed, 1, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		log.Printf("📨 Snapshot publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("📨 Snapshot publish failed: %v", err)
	}
}

// Disconnect closes the MQTT session.
func (s *Service) Disconnect() {
	close(s.stopChan)
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250) // 250ms grace period
		log.Printf("📨 MQTT disconnected")
	}
}
