package handler

import (
	"context"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"siteadmin/internal/auth"
	"siteadmin/internal/http/middleware"
	"siteadmin/internal/model"
	"siteadmin/internal/repository"
)

const (
	subscribePathKey  = "subscribe_path"
	subscribeTokenKey = "subscribe_token"
)

// SubscribeUpgrade admits WebSocket upgrades for the known content paths.
func SubscribeUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Query("path")
		if !model.SubscribablePaths[path] {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PATH", "path must be one of "+subscribableList())
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(subscribePathKey, path)
		c.Locals(subscribeTokenKey, middleware.SessionToken(c))
		return c.Next()
	}
}

// Subscribe streams {"path","value"} snapshots as text frames: the current
// value first, then the latest value after each change. The socket closes
// when the client leaves or the session ends.
func Subscribe(repo repository.Repository, sessions auth.Service, log *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		path, _ := conn.Locals(subscribePathKey).(string)
		token, _ := conn.Locals(subscribeTokenKey).(string)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := repo.Subscribe(ctx, path)
		if err != nil {
			log.Error("subscribe failed", zap.String("path", path), zap.Error(err))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
			return
		}
		defer sub.Close()

		// The first session value is the one the guard already accepted.
		session := sessions.Observe(ctx, token)
		<-session

		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-session:
				if ok && s != nil {
					continue
				}
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session ended"))
				return
			case snap, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(snap); err != nil {
					log.Debug("subscriber gone", zap.String("path", path), zap.Error(err))
					return
				}
			}
		}
	})
}

func subscribableList() string {
	paths := make([]string, 0, len(model.SubscribablePaths))
	for p := range model.SubscribablePaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return strings.Join(paths, ", ")
}
