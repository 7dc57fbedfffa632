// Copyright 2025 Joseph Cumines
//
// LookinMCP bridge - exposes the iOS Simulator view hierarchy to AI
// assistants via JSON-RPC 2.0 over stdio

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joeycumines/lookin-mcp/internal/config"
	"github.com/joeycumines/lookin-mcp/internal/lookin"
	"github.com/joeycumines/lookin-mcp/internal/server"
	"github.com/joeycumines/lookin-mcp/internal/transport"
)

const version = "1.0.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "lookin-mcp",
	Short:         "MCP bridge to LookinServer in an iOS Simulator app",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio (the default when run bare)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe ports 47164-47169 for a live LookinServer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports := lookin.FindAll(context.Background(), lookin.DefaultPorts(), lookin.DefaultProbeTimeout)
		if len(ports) == 0 {
			return fmt.Errorf("no LookinServer found on ports %d-%d", lookin.PortRangeStart, lookin.PortRangeEnd)
		}
		for _, port := range ports {
			fmt.Printf("LookinServer listening on 127.0.0.1:%d\n", port)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bridge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lookin-mcp %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.lookin-mcp/config.yaml)")
	rootCmd.AddCommand(serveCmd, probeCmd, versionCmd)
}

func main() {
	// Stdout carries the JSON-RPC stream; all logging goes to stderr.
	log.SetOutput(os.Stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	mcpServer, err := server.NewMCPServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		tr := transport.NewStdioTransport(os.Stdin, os.Stdout)
		if serveErr := mcpServer.Serve(tr); serveErr != nil {
			errChan <- serveErr
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		mcpServer.Shutdown()
	case err := <-errChan:
		log.Printf("Server error: %v", err)
		mcpServer.Shutdown()
		return err
	}

	// Wait for the serve loop, but not forever: stdin may be blocked.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Server shutdown complete")
	case <-time.After(3 * time.Second):
		log.Println("Forced shutdown")
	}

	if cfg.Debug {
		log.Println("Metrics at shutdown:")
		_ = transport.DefaultMetrics().WritePrometheus(os.Stderr)
	}
	return nil
}
