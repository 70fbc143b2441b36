package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/client"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/config"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/controllers"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/models"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/paymentsession"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/regestry"
)

var (
	Version    = "dev"
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "qrpay",
		Short:         "QR payment confirmation for the perfume shop checkout",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a JSON configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Configuration, error) {
	cfg, err := config.ParseConfig(configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payment API used by the checkout page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tracerShutdown := common.InitGlobalTracer(cfg.TracingConfig)
			defer tracerShutdown()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessions := regestry.NewSessionRegestry(ctx, paymentsession.OptionsFromConfig(cfg.SessionConfig))
			defer sessions.Shutdown()

			controller := controllers.NewPaymentController(client.NewClient(cfg.ApiConfig), sessions)
			server := controllers.NewServer(cfg.Port, controller, cfg.AllowedOrigins)
			server.Start()

			<-ctx.Done()
			log.Infof("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <paymentId>",
		Short: "Wait for one payment to be confirmed",
		Long: `Connects to the payment socket and waits for the outcome.

Exits 0 on success and 1 on failure, timeout or interrupt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tracerShutdown := common.InitGlobalTracer(cfg.TracingConfig)
			defer tracerShutdown()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cmd, args[0], paymentsession.OptionsFromConfig(cfg.SessionConfig))
		},
	}
}

func watch(ctx context.Context, cmd *cobra.Command, paymentId string, opts paymentsession.Options) error {
	out := cmd.OutOrStdout()
	result := make(chan error, 1)
	report := func(err error) {
		select {
		case result <- err:
		default:
		}
	}

	watcher := paymentsession.NewWatcher(ctx, opts)
	defer watcher.Close()

	watcher.Watch(paymentsession.WatchParams{
		PaymentId: paymentId,
		OnConnected: func() {
			fmt.Fprintf(out, "waiting for payment %s\n", paymentId)
		},
		OnStateChange: func(state models.ConnectionState) {
			log.Debugf("connection %s", state)
			// every reconnect used up and no outcome yet
			s := watcher.Session()
			if state == models.Disconnected && s != nil && s.ReconnectAttempts() >= opts.MaxReconnectAttempts {
				report(errors.Errorf("lost connection to payment %s", paymentId))
			}
		},
		OnPaymentSuccess: func(amount float64, transactionId string) {
			fmt.Fprintf(out, "paid %.0f, transaction %s\n", amount, transactionId)
			report(nil)
		},
		OnPaymentFailed: func(reason string) {
			report(errors.Errorf("payment failed: %s", reason))
		},
		OnPaymentTimeout: func() {
			report(errors.New("payment timed out"))
		},
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		watcher.Disconnect()
		return errors.New("interrupted")
	}
}
