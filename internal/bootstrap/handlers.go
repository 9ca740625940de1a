package bootstrap

import (
	"github.com/baoagent/voice-gateway/internal/gateway"
	"github.com/baoagent/voice-gateway/internal/health"
	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideHealthHandler(cfg *Config, redisClient *redis.Client, manager *voicesession.Manager) *health.Handler {
	return health.NewHandler(redisClient, cfg.SchedulingURL, manager, cfg.Version)
}

func RegisterRoutes(e *echo.Echo, ws *gateway.WSServer, healthHandler *health.Handler) {
	healthHandler.RegisterRoutes(e)
	e.GET("/ws/voice", ws.HandleConnection)
}

var HandlersModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterRoutes),
)
