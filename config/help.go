package config

import (
	"fmt"
	"strings"
)

const HelpMessage = `
iSpeed fleet safety backend

Usage:
  ispeed -mode=<mode> [-config-path=config.yaml]

Modes:
  api-service     REST API, websocket session stream and live trip monitor
  stats-service   consumes finished trips and maintains driver statistics

Flags:
  -mode           application mode (required)
  -config-path    path to the YAML config file (default: config.yaml)
  -help           show this message

Every config key can be overridden by its environment variable,
e.g. monitor.tick_interval -> MONITOR_TICK_INTERVAL.
`

func PrintHelp() {
	fmt.Print(HelpMessage)
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	var b strings.Builder
	fmt.Fprintln(&b, "Configuration:")
	fmt.Fprintf(&b, "  mode:            %s\n", cfg.Mode)
	fmt.Fprintf(&b, "  log level:       %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "  database:        %s@%s:%s/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Fprintf(&b, "  rabbitmq:        %s@%s:%s\n", cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Fprintf(&b, "  api port:        %s\n", cfg.Services.APIService)
	fmt.Fprintf(&b, "  stats port:      %s\n", cfg.Services.StatsService)
	fmt.Fprintf(&b, "  jwt secret:      %s\n", mask(cfg.Auth.JWTSecret))
	fmt.Fprintf(&b, "  tick interval:   %s\n", cfg.Monitor.TickInterval)
	fmt.Fprintf(&b, "  resolution:      %s\n", cfg.Monitor.ResolutionDelay)
	fmt.Fprintf(&b, "  alert p:         %.3f\n", cfg.Monitor.AlertProbability)
	fmt.Fprintf(&b, "  routes:          %s\n", strings.Join(cfg.Monitor.Routes, "; "))
	fmt.Print(b.String())
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
