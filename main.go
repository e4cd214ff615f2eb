// Command petbuddy runs the PetBuddy realtime hub: chat relay, call
// signaling, driver location fan-out and the booking lifecycle API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petbuddy-realtime/internal/config"
	"petbuddy-realtime/internal/identity"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "petbuddy",
		Short:         "PetBuddy realtime hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), tokenCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath, envFile)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (JSON)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Env file loaded before PETBUDDY_* variables")
	return cmd
}

func serve(ctx context.Context, configPath, envFile string) error {
	manager := config.NewConfigManager(configPath, envFile)
	if err := manager.Initialize(); err != nil {
		return err
	}
	cfg := manager.GetConfig()

	a, err := newApp(ctx, manager)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	manager.RegisterCallback(a.applyConfig)
	if err := manager.Watch(ctx); err != nil {
		log.Printf("⚠️ Config hot reload disabled: %v", err)
	}

	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		a.manager.Run(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("🚀 Starting PetBuddy realtime hub on %s", cfg.Port)
		log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Port)
		log.Printf("💾 Storage: %s", cfg.Storage)
		log.Printf("👥 Max connections: %d", cfg.MaxConnections)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutdown signal received, starting graceful shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
	}

	// websocket connections are hijacked, so the manager closes them
	select {
	case <-managerDone:
	case <-shutdownCtx.Done():
		log.Println("⚠️ Timed out waiting for connections to close")
	}
	log.Println("👋 Server stopped gracefully")
	return nil
}

func tokenCmd() *cobra.Command {
	var (
		id, name, role, envFile string
		ttl                     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development JWT signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigLoader("", envFile).LoadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("jwt secret is not set (PETBUDDY_JWT_SECRET)")
			}
			r := identity.Role(role)
			if r != "" && !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			token, err := identity.NewJWTResolver(cfg.JWTSecret, ttl).Issue(identity.Identity{ID: id, Name: name, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Caller id")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(identity.RoleUser), "Role: user, pethouse, clinic or driver")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Env file to read the secret from")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to the configured token_ttl)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
