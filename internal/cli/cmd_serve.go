package cli

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

	"github.com/spf13/cobra"

	"github.com/mistakeknot/agentmail/internal/auth"
	httpapi "github.com/mistakeknot/agentmail/internal/http"
	"github.com/mistakeknot/agentmail/internal/server"
	"github.com/mistakeknot/agentmail/internal/storage/sqlite"
	"github.com/mistakeknot/agentmail/internal/ws"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination server",
		Long: `Serve the operational HTTP surface: identity resolution, reservations,
lock status, the event journal, and the websocket event stream.

The server is an observer and convenience layer; reservations and guard
hooks keep working against the data directory when it is down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			if socket, _ := cmd.Flags().GetString("socket"); socket != "" {
				cfg.SocketPath = socket
			}

			journal, err := sqlite.New(cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer journal.Close()

			keyring, err := auth.LoadKeyringFromEnv()
			if err != nil {
				return fmt.Errorf("load keyring: %w", err)
			}

			hub := ws.NewHub()
			svc := httpapi.NewService(cfg, journal).WithBroadcaster(hub)
			router := httpapi.NewRouter(svc, hub.Handler(), auth.Middleware(keyring))

			srv, err := server.New(server.Config{
				Addr:       cfg.Addr,
				SocketPath: cfg.SocketPath,
				Handler:    router,
			})
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-stop:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	cmd.Flags().String("socket", "", "also listen on a unix socket")

	return cmd
}
