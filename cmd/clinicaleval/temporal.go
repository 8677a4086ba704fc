package main

import (
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/ahrav/clinicalextract/internal/logging"
)

// dialTemporal connects to the configured Temporal frontend.
func (a *app) dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.HostPort,
		Namespace: a.cfg.Temporal.Namespace,
		Logger:    logging.Temporal(a.logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", a.cfg.Temporal.HostPort, err)
	}
	return c, nil
}
