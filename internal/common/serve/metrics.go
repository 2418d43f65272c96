package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// ServeMetrics exposes the default prometheus registry on /metrics.  The returned function stops the server.
func ServeMetrics(port uint16) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return ServeHttp(port, mux)
}

// ServeHttp starts serving handler in the background once the port has been bound
func ServeHttp(port uint16, handler http.Handler) (func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.WithMessagef(err, "error listening on port %d", port)
	}
	return serve(listener, handler), nil
}

func serve(listener net.Listener, handler http.Handler) func() {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: shutdownTimeout}
	log.Infof("Serving on %s", listener.Addr())
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Http server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to stop http server")
		}
	}
}
