// Command hssorigind is the HSS origin connector's process entrypoint: it
// parses startup flags, optionally prints its capability descriptor and
// exits, then accepts client connections and runs one Connection Driver per
// connection, matching the "one logical worker per client" scheduling model
// (since per-client process forking is an external collaborator out of this
// core's scope).
package main

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/go-webdl/hssorigin/internal/config"
	"github.com/go-webdl/hssorigin/internal/connection"
	"github.com/go-webdl/hssorigin/internal/logging"
	"github.com/go-webdl/hssorigin/pkg/annexb"
	"github.com/go-webdl/hssorigin/pkg/upstream"
)

//go:embed assets/client.xap
var embeddedXAP []byte

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.JSON {
		body, err := defaultCapability().json()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(body))
		return
	}

	logging.Configure(logging.Config{Level: cfg.ZerologLevel(), Pretty: cfg.LogPretty})
	log := logging.With("main")
	log.Info().Str("version", version).Str("commit", commit).Msg("starting hssorigind")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer := upstream.NetDialer{SocketPath: cfg.SocketPath}
	conv := annexb.DefaultConverter{}

	go serveMetrics(log)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatal().Err(err).Str("listen", cfg.Listen).Msg("binding listener")
	}
	defer ln.Close()
	log.Info().Str("listen", cfg.Listen).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	acceptLoop(ln, dialer, conv, log)
}

// acceptLoop accepts connections until the listener closes (signaled by
// context cancellation), spawning one Connection Driver goroutine per
// client — the logical-worker-per-connection model §Design Notes calls for.
func acceptLoop(ln net.Listener, dialer upstream.Dialer, conv annexb.Converter, log zerolog.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Info().Err(err).Msg("listener closed, stopping accept loop")
			return
		}
		go func() {
			d := connection.New(conn, dialer, conv, embeddedXAP)
			d.Run()
		}()
	}
}

// serveMetrics exposes the prometheus registry on its own loopback port,
// independent of the client-facing listener.
func serveMetrics(log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe("127.0.0.1:9090", mux); err != nil {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}
