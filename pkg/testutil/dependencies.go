package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

const probeTimeout = 2 * time.Second

// SkipIfRedisUnavailable skips the test unless a Redis server answers a
// ping on the given address.
func SkipIfRedisUnavailable(t *testing.T, redisAddr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", redisAddr, err)
	}
}

// SkipIfKafkaUnavailable skips the test unless a Kafka broker on the given
// address answers a metadata request.
func SkipIfKafkaUnavailable(t *testing.T, kafkaAddr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", kafkaAddr)
	if err != nil {
		t.Skipf("kafka not reachable at %s: %v", kafkaAddr, err)
		return
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		t.Skipf("kafka at %s not answering metadata requests: %v", kafkaAddr, err)
	}
}

// SkipIfDependenciesUnavailable skips the test unless both Redis and Kafka
// are reachable.
func SkipIfDependenciesUnavailable(t *testing.T, redisAddr, kafkaAddr string) {
	t.Helper()
	SkipIfRedisUnavailable(t, redisAddr)
	SkipIfKafkaUnavailable(t, kafkaAddr)
}
