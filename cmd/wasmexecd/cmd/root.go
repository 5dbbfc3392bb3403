// Package cmd is wasmexecd's cobra command tree, the same root+flags shape
// as the teacher's cmd/opencoin/cmd/root.go collapsed to a single command
// since the daemon has exactly one mode of operation (spec §6 "CLI").
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgecane/opencoin/internal/engine"
	"github.com/georgecane/opencoin/internal/httpapi"
	"github.com/georgecane/opencoin/internal/logging"
	"github.com/georgecane/opencoin/internal/p2pnode"
	"github.com/georgecane/opencoin/internal/registry"
	"github.com/georgecane/opencoin/internal/store"
	"github.com/georgecane/opencoin/internal/store/dhtstore"
	"github.com/georgecane/opencoin/internal/store/localstore"
)

const (
	defaultDirName = ".wasm_exec_api"
	shutdownGrace  = 5 * time.Second
)

// RootCmd runs wasmexecd: bind the HTTP surface, open the selected store
// backend, and serve until signalled.
var RootCmd = &cobra.Command{
	Use:   "wasmexecd",
	Short: "Networked execution service for WebAssembly modules",
	RunE:  run,
}

func init() {
	RootCmd.Flags().Uint16P("port", "p", 4000, "HTTP listen port")
	RootCmd.Flags().StringP("dir", "d", defaultHomeDir(), "local store directory")
	RootCmd.Flags().BoolP("ephemeral", "m", false, "use an in-memory store; -d is ignored")
	RootCmd.Flags().String("log-level", "", "log level filter (default: info, or $WASMEXEC_LOG)")
	RootCmd.Flags().Bool("dht", false, "use the peer-to-peer DHT store backend instead of the local store")
}

func defaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

func run(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetUint16("port")
	dir, _ := cmd.Flags().GetString("dir")
	ephemeral, _ := cmd.Flags().GetBool("ephemeral")
	logLevel, _ := cmd.Flags().GetString("log-level")
	useDHT, _ := cmd.Flags().GetBool("dht")

	logger, err := logging.New(logLevel, false)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		st      store.Store
		node    *p2pnode.Node
		closers []func() error
	)

	if useDHT {
		n, err := p2pnode.New(ctx, p2pnode.Config{
			ListenAddrs: []string{"/ip4/0.0.0.0/tcp/0"},
		}, logger)
		if err != nil {
			return fmt.Errorf("p2p node: %w", err)
		}
		node = n
		closers = append(closers, node.Close)
		st = dhtstore.New(ctx, node.DHT, logging.ForDHT(logger))
	} else if ephemeral {
		local, err := localstore.OpenEphemeral()
		if err != nil {
			return fmt.Errorf("open ephemeral store: %w", err)
		}
		closers = append(closers, local.Close)
		st = local
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
		local, err := localstore.Open(dir)
		if err != nil {
			return fmt.Errorf("open store at %s: %w", dir, err)
		}
		closers = append(closers, local.Close)
		st = local
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	reg := registry.New(st)
	if node != nil {
		reg.Announcer = node
	}
	eng := engine.New(logger)
	srv := &httpapi.Server{Registry: reg, Engine: eng, Logger: logger}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("bind port %d: %w", port, err)
	}

	httpServer := &http.Server{Handler: srv.Router()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(ln) }()

	logger.Sugar().Infow("wasmexecd listening", "port", port, "ephemeral", ephemeral, "dht", useDHT)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
