package main

import (
	"net/http"
	"time"

	"github.com/ostrichaudit/suppress/internal/api"
	"github.com/ostrichaudit/suppress/internal/telemetry/logging"
)

func serve(addr string, logger *logging.Logger) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logger.Info("listening", map[string]interface{}{"addr": addr})
	return server.ListenAndServe()
}
