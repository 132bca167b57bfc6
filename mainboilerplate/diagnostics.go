package mainboilerplate

import (
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Port string `long:"port" env:"PORT" description:"Port for serving metrics and debugging handlers. If empty, they're not served"`
}

// InitDiagnostics enables serving of metrics and debugging services
// registered on the default HTTPMux, if a port is configured.
func InitDiagnostics(cfg DiagnosticsConfig) {
	if cfg.Port == "" {
		return
	}
	// Package "net/http/pprof" serves /debug/pprof/.

	// Serve a liveness check at /debug/ready.
	http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Serve Prometheus metrics at /debug/metrics.
	http.Handle("/debug/metrics", promhttp.Handler())

	go func() {
		var err = http.ListenAndServe(":"+cfg.Port, nil)
		log.WithField("err", err).Warn("diagnostics server exited")
	}()
}

// LogPanic is intended to be a deferred call to log a panic at the end of the
// program's lifecycle. The panic is re-raised.
func LogPanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Error("recovered panic")
		panic(r)
	}
}
