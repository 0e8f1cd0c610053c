package middleware

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateLimiter_InMemory(t *testing.T) {
	app := fiber.New()
	app.Post("/api/auth/login", NewRateLimiter(nil, "login", 2, time.Minute, nil).Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, _ := app.Test(httptest.NewRequest("POST", "/api/auth/login", nil))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, _ := app.Test(httptest.NewRequest("POST", "/api/auth/login", nil))
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestRateLimiter_RedisUnavailableFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	app := fiber.New()
	app.Post("/api/auth/login", NewRateLimiter(client, "login", 1, time.Minute, zap.NewNop()).Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/auth/login", nil), 2000)
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

// counterStore answers the limiter's transactions from memory through a
// go-redis hook, so no server is dialed.
type counterStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	ttls    map[string]time.Duration
	elapsed time.Duration
	batches [][]string
}

func newCounterStore() *counterStore {
	return &counterStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (s *counterStore) DialHook(next redis.DialHook) redis.DialHook          { return next }
func (s *counterStore) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (s *counterStore) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		var batch []string
		for _, cmd := range cmds {
			if cmd.Name() == "multi" || cmd.Name() == "exec" {
				continue
			}
			batch = append(batch, cmd.Name())
			key := fmt.Sprint(cmd.Args()[1])
			switch c := cmd.(type) {
			case *redis.StatusCmd:
				if _, ok := s.counts[key]; ok {
					c.SetErr(redis.Nil)
					continue
				}
				s.counts[key] = 0
				s.ttls[key] = expiryOf(c.Args())
				c.SetVal("OK")
			case *redis.IntCmd:
				s.counts[key]++
				c.SetVal(s.counts[key])
			case *redis.DurationCmd:
				c.SetVal(s.ttls[key] - s.elapsed)
			}
		}
		s.batches = append(s.batches, batch)
		return nil
	}
}

func expiryOf(args []interface{}) time.Duration {
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "ex":
			return time.Duration(args[i+1].(int64)) * time.Second
		case "px":
			return time.Duration(args[i+1].(int64)) * time.Millisecond
		}
	}
	return 0
}

func TestRateLimiter_RedisWindowIsOpenedWithTheCount(t *testing.T) {
	store := newCounterStore()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(store)
	defer client.Close()

	app := fiber.New()
	app.Post("/api/auth/login", NewRateLimiter(client, "login", 2, time.Minute, zap.NewNop()).Handler(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/auth/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	store.elapsed = 15 * time.Second
	resp, err := app.Test(httptest.NewRequest("POST", "/api/auth/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "45", resp.Header.Get("Retry-After"))

	key := "login:0.0.0.0"
	assert.Equal(t, int64(3), store.counts[key])
	assert.Equal(t, time.Minute, store.ttls[key])
	require.Len(t, store.batches, 3)
	for _, batch := range store.batches {
		assert.Equal(t, []string{"set", "incr", "pttl"}, batch)
	}
}
