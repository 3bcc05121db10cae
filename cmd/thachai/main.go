// Package main is the ThachAI gateway entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thachpham/thachai/internal/profile"
	"github.com/thachpham/thachai/server"
)

var version = "0.4.0"

var rootCmd = &cobra.Command{
	Use:   "thachai",
	Short: "ThachAI conversational gateway",
	Long: `ThachAI gateway serves the voice-assistant, skills-kit, bot-framework,
and web conversation endpoints in front of the ThachAI feature API.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("thachai v%s\n", version)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "", `server mode: "prod", "dev", or "demo"`)
	flags.String("addr", "", "address to bind the server to")
	flags.Int("port", 0, "port to bind the server to")
	flags.String("driver", "", `session store driver: "memory" or "redis"`)
	flags.String("upstream", "", "base URL of the ThachAI feature API")

	viper.SetEnvPrefix("thachai")
	viper.AutomaticEnv()
	for _, name := range []string{"mode", "addr", "port", "driver", "upstream"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(versionCmd)
}

func runServer(_ *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	prof := &profile.Profile{
		Mode:          viper.GetString("mode"),
		Addr:          viper.GetString("addr"),
		Port:          viper.GetInt("port"),
		SessionDriver: viper.GetString("driver"),
		UpstreamURL:   viper.GetString("upstream"),
		Version:       version,
	}
	prof.FromEnv()
	if err := prof.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.NewServer(ctx, prof)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
