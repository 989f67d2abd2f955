package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/highlight"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher emits processing events over MQTT so other systems can follow a
// media item's lifecycle without polling the HTTP API. A nil *Publisher is
// valid and publishes nothing, which keeps call sites unconditional.
type Publisher struct {
	conn      mqtt.Client
	connected atomic.Bool
	log       zerolog.Logger
}

// Options configures the event publisher.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect creates a publisher connected to the broker. Returns nil (and no
// error) when BrokerURL is empty: event publishing is optional.
func Connect(opts Options) (*Publisher, error) {
	if opts.BrokerURL == "" {
		return nil, nil
	}

	p := &Publisher{log: opts.Log}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Publisher) onConnect(mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// IsConnected reports the current broker connection state.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.connected.Load()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.log.Info().Msg("disconnecting mqtt publisher")
	p.conn.Disconnect(1000)
}

// PublishStatus emits a stage transition for a media item.
func (p *Publisher) PublishStatus(row *database.StatusRow) {
	if p == nil {
		return
	}
	p.publish(fmt.Sprintf("clip-engine/%s/status", row.MediaID), row)
}

// PublishClip emits a clip materialization event.
func (p *Publisher) PublishClip(clip *database.ClipRow) {
	if p == nil {
		return
	}
	p.publish(fmt.Sprintf("clip-engine/%s/clips", clip.MediaID), clip)
}

// PublishCandidates emits highlight candidates after scoring.
func (p *Publisher) PublishCandidates(mediaID uuid.UUID, cands []highlight.Candidate) {
	if p == nil {
		return
	}
	p.publish(fmt.Sprintf("clip-engine/%s/highlights", mediaID), map[string]any{
		"media_id":   mediaID,
		"candidates": cands,
	})
}

// publish sends a JSON payload without waiting for delivery. Events are
// advisory; a dropped message is logged, never retried.
func (p *Publisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("marshal event failed")
		return
	}
	token := p.conn.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
		}
	}()
}
