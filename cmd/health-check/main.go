// Package main provides a standalone health probe for container health checks
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alchemorsel/intake/internal/infrastructure/config"
	"github.com/alchemorsel/intake/internal/infrastructure/monitoring"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

type healthBody struct {
	Data struct {
		Status  string                   `json:"status"`
		Service string                   `json:"service"`
		Checks  []monitoring.HealthCheck `json:"checks"`
	} `json:"data"`
}

func main() {
	url := flag.String("url", "", "Health endpoint URL (default derived from config)")
	configPath := flag.String("config", os.Getenv("INTAKE_CONFIG"), "Configuration file path")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	allowDegraded := flag.Bool("allow-degraded", true, "Treat a degraded status as passing")
	verbose := flag.Bool("verbose", false, "Print every check")
	flag.Parse()

	if *url == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
			os.Exit(exitCodeError)
		}
		*url = fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	}

	os.Exit(probe(*url, *timeout, *allowDegraded, *verbose))
}

func probe(url string, timeout time.Duration, allowDegraded, verbose bool) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
		return exitCodeError
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
		return exitCodeFailure
	}
	defer resp.Body.Close()

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Fprintf(os.Stderr, "health-check: decode response: %v\n", err)
		return exitCodeError
	}

	fmt.Printf("%s: %s\n", body.Data.Service, body.Data.Status)
	if verbose {
		for _, c := range body.Data.Checks {
			fmt.Printf("  %-10s %-9s %s\n", c.Name, c.Status, c.Message)
		}
	}

	switch body.Data.Status {
	case monitoring.StatusHealthy:
		return exitCodeSuccess
	case monitoring.StatusDegraded:
		if allowDegraded {
			return exitCodeSuccess
		}
	}
	return exitCodeFailure
}
