package ws

import (
	"context"
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// FastHTTPUpgrader is used to upgrade a fasthttp request into a WebSocket
// connection, an alternate entrypoint alongside Upgrader for callers on
// github.com/valyala/fasthttp instead of net/http (SPEC_FULL.md §3).
// Adapted from the teacher's FastHTTPUpgrader
// (_examples/gorilla-websocket/fasthttp.go); several names that file
// referenced (newConn, computeAcceptKeyByte, subprotocolsFromHeader,
// checkSameOriginFromHeaderAndHost, ...) belong to gorilla's conn.go,
// which isn't part of this repo, so the handshake validation is
// rewritten here against this package's own Controller and header helpers
// instead.
type FastHTTPUpgrader struct {
	// Handler receives the Controller once the handshake completes.
	Handler func(*Controller)

	Subprotocols      []string
	CheckOrigin       func(ctx *fasthttp.RequestCtx) bool
	ControllerOptions ControllerOptions
}

func (f *FastHTTPUpgrader) hasSubprotocol(p string) bool {
	for _, s := range f.Subprotocols {
		if s == p {
			return true
		}
	}
	return false
}

// UpgradeHandler validates the handshake, replies with 101 Switching
// Protocols, and hijacks the connection into a Controller passed to
// Handler.
func (f *FastHTTPUpgrader) UpgradeHandler(ctx *fasthttp.RequestCtx) {
	if f.Handler == nil {
		panic("ws: FastHTTPUpgrader has no Handler set")
	}

	if !ctx.IsGet() {
		ctx.Error("ws: method not GET", fasthttp.StatusMethodNotAllowed)
		return
	}
	if string(ctx.Request.Header.Peek("Sec-Websocket-Version")) != "13" {
		ctx.Error("ws: version != 13", fasthttp.StatusBadRequest)
		return
	}
	if !ctx.Request.Header.ConnectionUpgrade() {
		ctx.Error("ws: connection header != upgrade", fasthttp.StatusBadRequest)
		return
	}
	if !headerTokenContains(string(ctx.Request.Header.Peek("Upgrade")), "websocket") {
		ctx.Error("ws: upgrade != websocket", fasthttp.StatusBadRequest)
		return
	}
	if f.CheckOrigin != nil && !f.CheckOrigin(ctx) {
		ctx.Error("ws: origin not allowed", fasthttp.StatusForbidden)
		return
	}

	challengeKey := string(ctx.Request.Header.Peek("Sec-Websocket-Key"))
	if challengeKey == "" {
		ctx.Error("ws: key missing or blank", fasthttp.StatusBadRequest)
		return
	}

	subprotocol := ""
	if f.Subprotocols != nil {
		requested := strings.Split(string(ctx.Request.Header.Peek("Sec-Websocket-Protocol")), ",")
		for _, p := range requested {
			p = strings.TrimSpace(p)
			if f.hasSubprotocol(p) {
				subprotocol = p
				break
			}
		}
	}

	ctx.SetStatusCode(fasthttp.StatusSwitchingProtocols)
	ctx.Response.Header.Set("Upgrade", "websocket")
	ctx.Response.Header.Set("Connection", "Upgrade")
	ctx.Response.Header.Set("Sec-WebSocket-Accept", AcceptKey(challengeKey))
	if subprotocol != "" {
		ctx.Response.Header.Set("Sec-Websocket-Protocol", subprotocol)
	}

	opts := f.ControllerOptions
	ctx.Hijack(func(conn net.Conn) {
		f.Handler(NewController(context.Background(), conn, conn, opts))
	})
}
