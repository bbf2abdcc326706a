package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RecordDBPoolMetrics updates database pool metrics.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

// RecordRedisPoolMetrics updates Redis pool metrics.
func RecordRedisPoolMetrics(client *redis.Client) {
	stats := client.PoolStats()

	RedisPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
	RedisPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
	RedisPoolConnections.WithLabelValues("stale").Set(float64(stats.StaleConns))
	RedisPoolTimeouts.Set(float64(stats.Timeouts))
}
