package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/index"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/registry"
	"github.com/seamark/seamark/internal/scheduler"
	"github.com/seamark/seamark/internal/view"
)

type Deps struct {
	Logger      logger.Logger
	StartTime   time.Time
	Version     string
	Commit      string
	BuildDate   string
	GoVersion   string
	TimeNow     func() time.Time     // for testing, defaults to time.Now
	RedisClient *redis.Client        // Redis client connection
	MemoryIndex *index.MemoryIndex   // In-memory service index
	Registry    *registry.Registry   // Service registry (writes go through here)
	Harvester   *scheduler.Harvester // On-demand harvest entry point
	Aggregator  *view.Aggregator     // Read-side status composition
}
