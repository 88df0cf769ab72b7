package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/Robogera/trackassign/pkg/config"
	"github.com/Robogera/trackassign/pkg/synapse"

	mqtt "github.com/soypat/natiu-mqtt"
)

// Publishes every command of in_chan to cfg.Topic with QoS0
func mqttclient(
	ctx context.Context,
	parent_logger *slog.Logger,
	cfg config.MqttConfig,
	in_chan <-chan *synapse.Command,
) error {
	logger := parent_logger.With("coroutine", "mqttclient")
	timeout := time.Second * time.Duration(max(cfg.TimeoutSec, 1))

	client := mqtt.NewClient(
		mqtt.ClientConfig{
			Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 2048)},
			OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
				message, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				logger.Debug("Recieved", "header", pubHead.String(), "message", message)
				return nil
			},
		})

	dialer := net.Dialer{Timeout: timeout}
	connection, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		logger.Error("Can't reach broker", "address", cfg.Address, "error", err)
		return fmt.Errorf("Can't dial %s: %w. Error: %w", cfg.Address, err, ERR_BROKER)
	}

	connection_ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var vars mqtt.VariablesConnect
	vars.SetDefaultMQTT([]byte(cfg.ClientID))
	vars.KeepAlive = cfg.KeepAliveSec
	if err := client.Connect(connection_ctx, connection, &vars); err != nil {
		connection.Close()
		logger.Error("Can't connect to broker", "address", cfg.Address, "error", err)
		return fmt.Errorf("Can't connect to %s: %w. Error: %w", cfg.Address, err, ERR_BROKER)
	}
	defer client.Disconnect(errors.New("tracking finished"))
	logger.Info("Connected", "address", cfg.Address, "topic", cfg.Topic)

	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return err
	}
	publish_vars := mqtt.VariablesPublish{TopicName: []byte(cfg.Topic)}

	var keep_alive <-chan time.Time
	if cfg.KeepAliveSec > 0 {
		ticker := time.NewTicker(time.Second * time.Duration(cfg.KeepAliveSec) / 2)
		defer ticker.Stop()
		keep_alive = ticker.C
	}

	var published uint
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Mqtt client cancelled by context")
			return ERR_CANCELLED_BY_CONTEXT
		case <-keep_alive:
			ping_ctx, ping_cancel := context.WithTimeout(ctx, timeout)
			err := client.Ping(ping_ctx)
			ping_cancel()
			if err != nil {
				logger.Warn("Ping failed", "error", err)
			}
		case command, ok := <-in_chan:
			if !ok {
				logger.Info("Publishing finished", "messages", published)
				return nil
			}
			payload, err := command.ToPayload()
			if err != nil {
				return fmt.Errorf("Can't encode message %d. Error: %w", command.Id, err)
			}
			if err := client.PublishPayload(flags, publish_vars, payload); err != nil {
				logger.Error("Can't publish", "message", command.Id, "error", err)
				return fmt.Errorf("Can't publish message %d: %w. Error: %w", command.Id, err, ERR_BROKER)
			}
			published++
		}
	}
}
