// Command wsecho is a minimal HTTP + WebSocket echo server built on
// royalbed's ws package: GET / replies with a plain-text net/http
// response, and GET /echo upgrades to a WebSocket
// connection that echoes every message it receives back to the sender.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/Ilyaferilo/royalbed/ws"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := ws.NewMetrics(nil)

	upgrader := &ws.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
		ControllerOptions: ws.ControllerOptions{
			Logger:  logger,
			Metrics: metrics,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("wsecho: connect to /echo over WebSocket\n"))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		controller, err := upgrader.Upgrade(w, r)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		go echoLoop(controller, logger)
	})

	logger.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func echoLoop(controller *ws.Controller, logger *slog.Logger) {
	defer controller.Close()

	ctx := context.Background()
	for {
		payload, err := controller.ReadFrame(ctx)
		if err != nil {
			logger.Debug("connection closed", "conn_id", controller.ID(), "error", err)
			return
		}
		if err := controller.WriteBinary(payload); err != nil {
			logger.Debug("write failed", "conn_id", controller.ID(), "error", err)
			return
		}
	}
}
