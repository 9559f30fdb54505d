package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/visualization"
)

func TestNewServeCmd(t *testing.T) {
	cmd := newServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}
	for _, flag := range []string{"addr", "no-open"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	srv, err := visualization.NewServer(visualization.Options{
		Defaults: cfg.Defaults,
		Limits:   cfg.Server,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	cmd := newServeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runServer(cmd, ctx, srv, true); err != nil {
		t.Fatalf("runServer returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Simulator running at http://") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunServer_ListenError(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "256.0.0.1:bad"
	srv, err := visualization.NewServer(visualization.Options{
		Defaults: cfg.Defaults,
		Limits:   cfg.Server,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	cmd := newServeCmd()
	cmd.SetOut(&bytes.Buffer{})
	if err := runServer(cmd, context.Background(), srv, true); err == nil {
		t.Error("expected listen error")
	}
}
