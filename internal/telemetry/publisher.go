package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/engine"
	bridgeerrors "pam-dwin-bridge/internal/errors"
	"pam-dwin-bridge/internal/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// ErrNotConnected is returned when publishing without a broker session
var ErrNotConnected = errors.New("client not connected")

// SnapshotPublisher is what the services need from the exporter
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap engine.Snapshot) error
	PublishStatusOnline(ctx context.Context) error
	PublishStatusOffline(ctx context.Context) error
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// Publisher sends bridge state to an MQTT broker
type Publisher struct {
	client   paho.Client
	settings config.TelemetrySettings
}

// NewPublisher creates a publisher; Connect must be called before publishing
func NewPublisher(settings config.TelemetrySettings) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", settings.Broker, settings.Port))
	opts.SetClientID(settings.ClientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetAutoReconnect(true)

	keepAlive := settings.KeepAlive
	if keepAlive == 0 {
		keepAlive = 60 * time.Second
	}
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	// Broker marks the bridge offline if the session drops
	opts.SetWill(settings.StatusTopic, statusOffline, 1, true)

	opts.SetOnConnectHandler(func(client paho.Client) {
		logger.LogInfo("📡 Telemetry publisher connected to MQTT broker")
		if token := client.Publish(settings.StatusTopic, 1, true, statusOnline); token.Wait() && token.Error() != nil {
			logger.LogWarn("Error publishing online status on connect: %v", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		logger.LogError("Telemetry publisher disconnected: %v", err)
	})

	return newPublisherWithClient(paho.NewClient(opts), settings)
}

func newPublisherWithClient(client paho.Client, settings config.TelemetrySettings) *Publisher {
	return &Publisher{client: client, settings: settings}
}

// Connect connects to the broker, retrying until it succeeds or ctx ends
func (p *Publisher) Connect(ctx context.Context) error {
	retryDelay := p.settings.RetryDelay
	if retryDelay == 0 {
		retryDelay = 5 * time.Second
	}

	attempt := 1
	for {
		logger.LogDebug("🔄 Connecting telemetry publisher to %s (attempt %d)...", p.settings.Broker, attempt)

		token := p.client.Connect()
		if token.Wait() && token.Error() == nil {
			logger.LogInfo("✅ Telemetry publisher connected after %d attempts", attempt)
			return nil
		}

		logger.LogError("❌ Telemetry connection failed (attempt %d): %v", attempt, token.Error())
		logger.LogInfo("⏳ Retrying in %.0f seconds...", retryDelay.Seconds())

		select {
		case <-ctx.Done():
			return fmt.Errorf("telemetry connection cancelled: %w", ctx.Err())
		case <-time.After(retryDelay):
			attempt++
		}
	}
}

// Disconnect closes the broker session after announcing offline
func (p *Publisher) Disconnect(ctx context.Context) {
	if !p.client.IsConnected() {
		return
	}
	if err := p.PublishStatusOffline(ctx); err != nil {
		logger.LogDebug("Offline status not sent: %v", err)
	}
	p.client.Disconnect(250)
}

// PublishSnapshot publishes the snapshot in the configured payload format
func (p *Publisher) PublishSnapshot(ctx context.Context, snap engine.Snapshot) error {
	payload, err := Format(p.settings.PayloadFormat, snap)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, p.settings.StateTopic, 0, false, payload); err != nil {
		return p.wrap("publish snapshot", p.settings.StateTopic, err)
	}
	logger.LogTrace("📤 Snapshot %d -> %s", snap.Cycle, p.settings.StateTopic)
	return nil
}

// PublishStatusOnline publishes the retained online status
func (p *Publisher) PublishStatusOnline(ctx context.Context) error {
	return p.publishStatus(ctx, statusOnline)
}

// PublishStatusOffline publishes the retained offline status
func (p *Publisher) PublishStatusOffline(ctx context.Context) error {
	return p.publishStatus(ctx, statusOffline)
}

func (p *Publisher) publishStatus(ctx context.Context, status string) error {
	if err := p.publish(ctx, p.settings.StatusTopic, 0, true, status); err != nil {
		return p.wrap("publish "+status+" status", p.settings.StatusTopic, err)
	}
	logger.LogDebug("📡 Published bridge status: %s", status)
	return nil
}

// PublishDiagnostic publishes {code, message, timestamp} to the diagnostic topic
func (p *Publisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	diagnostic := map[string]interface{}{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(diagnostic)
	if err != nil {
		return fmt.Errorf("error marshaling diagnostic: %w", err)
	}

	if err := p.publish(ctx, p.settings.DiagnosticTopic, 0, false, payload); err != nil {
		return p.wrap("publish diagnostic", p.settings.DiagnosticTopic, err)
	}
	logger.LogDebug("🔧 Published diagnostic: [%d] %s", code, message)
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, qos, retained, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}

func (p *Publisher) wrap(op, topic string, err error) error {
	mqttErr := bridgeerrors.NewMQTTError(op, err, p.settings.Broker)
	mqttErr.Topic = topic
	return mqttErr
}

var _ SnapshotPublisher = (*Publisher)(nil)
var _ bridgeerrors.DiagnosticPublisher = (*Publisher)(nil)
