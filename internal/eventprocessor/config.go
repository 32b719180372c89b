// Cadence - Behavioral Drift Detection for Workstation Input
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/cadence/internal/config"
)

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	MaxPayload        int32
}

// DefaultServerConfig returns defaults for a loopback-only embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 1 << 30,   // 1GB
		MaxPayload:        8 << 20,   // 8MB, matches the HTTP body limit
	}
}

// PublisherConfig configures the score publisher connection.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns publisher defaults for url.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 << 20,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig configures the batch subscriber connection.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns subscriber defaults for url.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "cadence-ingest",
		QueueGroup:       "ingesters",
		SubscribersCount: 2,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// CircuitBreakerConfig configures the publisher circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns breaker defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Settings is the full set of derived transport settings.
type Settings struct {
	Server         ServerConfig
	Subscriber     SubscriberConfig
	Publisher      PublisherConfig
	Router         RouterConfig
	CircuitBreaker CircuitBreakerConfig

	Embedded       bool
	BatchSubject   string
	ResultSubject  string
	PublishResults bool
}

// SettingsFromConfig derives transport settings from the application's NATS
// section. The embedded server listens on the host and port of cfg.URL.
func SettingsFromConfig(cfg *config.NATSConfig) (Settings, error) {
	if cfg == nil {
		return Settings{}, fmt.Errorf("%w: nil NATS config", ErrInvalidConfig)
	}
	if cfg.BatchSubject == "" {
		return Settings{}, fmt.Errorf("%w: batch subject is required", ErrInvalidConfig)
	}
	if cfg.PublishResults && cfg.ResultSubject == "" {
		return Settings{}, fmt.Errorf("%w: result subject is required when publishing results", ErrInvalidConfig)
	}

	s := Settings{
		Server:         DefaultServerConfig(),
		Subscriber:     DefaultSubscriberConfig(cfg.URL),
		Publisher:      DefaultPublisherConfig(cfg.URL),
		Router:         DefaultRouterConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig("nats-score-publisher"),
		Embedded:       cfg.EmbeddedServer,
		BatchSubject:   cfg.BatchSubject,
		ResultSubject:  cfg.ResultSubject,
		PublishResults: cfg.PublishResults,
	}

	if cfg.EmbeddedServer {
		host, port, err := hostPort(cfg.URL)
		if err != nil {
			return Settings{}, err
		}
		s.Server.Host = host
		s.Server.Port = port
		if cfg.StoreDir != "" {
			s.Server.StoreDir = cfg.StoreDir
		}
		if cfg.MaxMemory > 0 {
			s.Server.JetStreamMaxMem = cfg.MaxMemory
		}
		if cfg.MaxStore > 0 {
			s.Server.JetStreamMaxStore = cfg.MaxStore
		}
	}

	if cfg.DurableName != "" {
		s.Subscriber.DurableName = cfg.DurableName
	}
	if cfg.QueueGroup != "" {
		s.Subscriber.QueueGroup = cfg.QueueGroup
	}
	if cfg.SubscribersCount > 0 {
		s.Subscriber.SubscribersCount = cfg.SubscribersCount
	}
	if cfg.AckWaitTimeout > 0 {
		s.Subscriber.AckWaitTimeout = cfg.AckWaitTimeout
	}
	if cfg.CloseTimeout > 0 {
		s.Subscriber.CloseTimeout = cfg.CloseTimeout
		s.Router.CloseTimeout = cfg.CloseTimeout
	}
	return s, nil
}

func hostPort(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("%w: parse NATS URL: %v", ErrInvalidConfig, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		// No explicit port
		if u.Hostname() == "" {
			return "", 0, fmt.Errorf("%w: NATS URL has no host", ErrInvalidConfig)
		}
		return u.Hostname(), 4222, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%w: invalid NATS port %q", ErrInvalidConfig, portStr)
	}
	return host, port, nil
}
