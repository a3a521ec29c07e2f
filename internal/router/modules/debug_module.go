package modules

import (
	"context"
	"expvar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
)

// StatsFunc reports named counters for /debug/vars.
type StatsFunc func(ctx context.Context) (map[string]int64, error)

var (
	publishOnce  sync.Once
	currentStats atomic.Pointer[StatsFunc]
)

// expvar names are process global; the var reads whichever engine registered last.
func publishStats(fn StatsFunc) {
	currentStats.Store(&fn)
	publishOnce.Do(func() {
		expvar.Publish("adoptme", expvar.Func(func() any {
			p := currentStats.Load()
			if p == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			stats, err := (*p)(ctx)
			if err != nil {
				return map[string]string{"error": err.Error()}
			}
			return stats
		}))
	})
}

type DebugModule struct {
	Limiter middleware.Limiter
	Stats   StatsFunc
}

func NewDebugModule(limiter middleware.Limiter, stats StatsFunc) *DebugModule {
	return &DebugModule{Limiter: limiter, Stats: stats}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	if m.Stats != nil {
		publishStats(m.Stats)
	}
	// expvar, private networks only
	rl := middleware.RateLimit(m.Limiter, 120, middleware.KeyByIPAndPath(), nil)
	rg.GET("/debug/vars", middleware.Only(middleware.AllowPrivateIP()), rl, gin.WrapH(expvar.Handler()))
}
