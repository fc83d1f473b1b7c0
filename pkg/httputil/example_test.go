package httputil_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/httputil"
	"github.com/wonny/vaxtrack/pkg/logger"
	"github.com/wonny/vaxtrack/pkg/redis"
)

// Example_sharedRateLimit demonstrates pacing dataset downloads across processes
func Example_sharedRateLimit() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		return
	}
	log := logger.New(cfg)

	rdb, err := redis.New(context.Background(), cfg)
	if err != nil {
		rdb = redis.Disabled()
	}
	defer rdb.Close()

	client := httputil.NewWithTimeout(cfg, log, 5*time.Minute).
		WithRateLimiter(redis.NewRateLimiter(rdb, "vaxtrack"), redis.OWIDRateLimit)

	resp, err := client.Get(context.Background(), cfg.Dataset.URL)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
}
