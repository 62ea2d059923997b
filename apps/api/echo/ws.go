package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/services/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registerWsAPI exposes the event stream. Browsers cannot set headers on
// websocket handshakes, so the JWT travels in the `token` query parameter.
// Room membership is derived from the token's role; the client has no say.
func registerWsAPI(g *echo.Group, hub *broadcast.Hub) {
	g.GET("/ws", func(ctx echo.Context) error {
		claims, err := parseToken(ctx.QueryParam("token"))
		if err != nil {
			return err
		}

		conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
		if err != nil {
			return errors.Wrap(err, "upgrading connection")
		}
		hub.Admit(conn, claims.UserID(), claims.Role)
		return nil
	})
}
