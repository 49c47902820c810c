package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Environment variables configuring the auditor.
const (
	envRPC       = "SAVINGS_RPC"
	envContract  = "SAVINGS_CONTRACT"
	envDSN       = "SAVINGS_AUDIT_DSN"
	envBrokers   = "SAVINGS_AUDIT_KAFKA_BROKERS"
	envTopic     = "SAVINGS_AUDIT_KAFKA_TOPIC"
	envLogFile   = "SAVINGS_AUDIT_LOG_FILE"
	envLogLevel  = "SAVINGS_AUDIT_LOG_LEVEL"
	envReconcile = "SAVINGS_AUDIT_RECONCILE_INTERVAL"
)

type config struct {
	// WebSocket endpoint of the Neo RPC server.
	rpc      string
	contract string

	// Memory store is used when empty.
	dsn string

	// Records are not published when empty.
	brokers []string
	topic   string

	// Logs are written to stderr when empty.
	logFile  string
	logLevel string

	// Zero disables periodic reconciliation.
	reconcileInterval time.Duration
}

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		rpc:      getenv(envRPC),
		contract: getenv(envContract),
		dsn:      getenv(envDSN),
		topic:    getenv(envTopic),
		logFile:  getenv(envLogFile),
		logLevel: getenv(envLogLevel),
	}

	switch {
	case cfg.rpc == "":
		return cfg, fmt.Errorf("missing %s", envRPC)
	case !strings.HasPrefix(cfg.rpc, "ws://") && !strings.HasPrefix(cfg.rpc, "wss://"):
		return cfg, errors.New("RPC endpoint must be a WebSocket one")
	case cfg.contract == "":
		return cfg, fmt.Errorf("missing %s", envContract)
	}

	if cfg.logLevel == "" {
		cfg.logLevel = "info"
	}

	if s := getenv(envBrokers); s != "" {
		for _, b := range strings.Split(s, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.brokers = append(cfg.brokers, b)
			}
		}
	}

	if s := getenv(envReconcile); s != "" {
		var err error

		cfg.reconcileInterval, err = time.ParseDuration(s)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", envReconcile, err)
		}
	}

	return cfg, nil
}
