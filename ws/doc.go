// Copyright 2013 Gary Burd. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ws implements the WebSocket protocol defined in RFC 6455: a pure
// frame codec (ParseFrame/CreateFrame) plus a stateful per-connection
// Controller that drives the opening handshake reply, fragmentation
// reassembly, ping/pong liveness, and the closing handshake.
//
// # Overview
//
// A server application calls Upgrader.Upgrade (or, on top of
// github.com/valyala/fasthttp, FastHTTPUpgrader.UpgradeHandler) to get a
// *Controller for a hijacked connection:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    upgrader := ws.Upgrader{}
//	    controller, err := upgrader.Upgrade(w, r)
//	    if err != nil {
//	        log.Println(err)
//	        return
//	    }
//	    defer controller.Close()
//	    for {
//	        payload, err := controller.ReadFrame(r.Context())
//	        if err != nil {
//	            return
//	        }
//	        if err := controller.WriteBinary(payload); err != nil {
//	            return
//	        }
//	    }
//	}
//
// A client performs the opening handshake itself over an already-dialed
// connection with ClientHandshake, which likewise returns a *Controller:
//
//	controller, _, err := ws.ClientHandshake(ctx, conn, "example.com", "/chat", nil, ws.ControllerOptions{})
//
// # Messages
//
// Controller works in whole messages: ReadFrame returns a message's full
// payload once every fragment has arrived, and WriteText/WriteBinary send a
// single unfragmented message. There is no NextReader/NextWriter streaming
// API — messages this module handles fit comfortably in memory.
//
// # Liveness and shutdown
//
// Controller sends its own PING at ControllerOptions.PingInterval and treats
// a missed PONG as a fatal error (ErrPingTimeout) delivered through
// ReadFrame/WaitForClose. Close begins the RFC 6455 closing handshake and
// forces the connection closed after ControllerOptions.CloseTimeout if the
// peer never replies.
package ws
