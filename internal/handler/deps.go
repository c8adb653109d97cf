package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"presence/internal/app/relay"
	"presence/internal/configs"
	"presence/internal/pkg/limiter"
)

type AppDeps struct {
	Hub            *relay.Hub
	Config         *configs.AppConfig
	ConnectLimiter *limiter.IPRateLimiter
	Gatherer       prometheus.Gatherer
}
