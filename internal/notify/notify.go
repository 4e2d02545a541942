/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package notify publishes entity change events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// Action is the kind of change an event reports.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// Event describes a committed change to one entity.
type Event struct {
	ID         string      `json:"id"`
	Entity     string      `json:"entity"`
	Action     Action      `json:"action"`
	EntityID   int64       `json:"entity_id"`
	TenantID   int64       `json:"tenant_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

// NewEvent returns an event with a fresh id and the current time.
func NewEvent(entity string, action Action, entityID, tenantID int64, data interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Entity:     entity,
		Action:     action,
		EntityID:   entityID,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Subject returns "<prefix>.<entity>.<action>".
func (e Event) Subject(prefix string) string {
	parts := []string{e.Entity, string(e.Action)}
	if prefix = strings.Trim(prefix, "."); prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }

// Config selects and configures the publisher.
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Name          string        `mapstructure:"name"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// natsHeaderCarrier adapts nats.Msg headers for otel propagators.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSPublisher publishes JSON events on NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	owned  bool
}

// Dial connects to cfg.URL and returns a publisher owning the connection.
func Dial(cfg Config, logger logrus.FieldLogger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, cfg.SubjectPrefix)
	p.owned = true
	return p, nil
}

// NewNATSPublisher publishes over an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: nc, prefix: prefix}
}

// Publish injects the trace context of ctx into the message headers.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: event.Subject(p.prefix), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return p.conn.PublishMsg(msg)
}

// Close drains the connection when the publisher dialed it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}

// Subscribe decodes events published under subject and hands them to fn
// with the propagated context. Malformed messages are dropped.
func Subscribe(nc *nats.Conn, subject string, fn func(context.Context, Event)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		fn(ctx, event)
	})
}

// New returns a NATS publisher when enabled and Noop otherwise.
func New(cfg Config, logger logrus.FieldLogger) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return Dial(cfg, logger)
}
