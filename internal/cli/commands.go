package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/identity"
	"storefront/internal/payment"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/store/seed"
)

func (a *app) withStore(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	st, err := openStore(ctx, a.cfg.Store, a.log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			a.log.Warn("close store", "error", err)
		}
	}()
	return fn(ctx, st)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				start := time.Now()
				if err := migrate(ctx, st); err != nil {
					return err
				}
				a.log.Info("migrated", "store", a.cfg.Store.Kind, "duration_ms", time.Since(start).Milliseconds())
				return nil
			})
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog and accounts into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				if err := migrate(ctx, st); err != nil {
					return err
				}
				return seed.Run(ctx, st, a.log)
			})
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var seedMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.withStore(ctx, func(ctx context.Context, st store.Store) error {
				if err := migrate(ctx, st); err != nil {
					return err
				}
				if seedMemory && a.cfg.Store.Kind == "memory" {
					if err := seed.Run(ctx, st, a.log); err != nil {
						return err
					}
				}
				return a.serve(ctx, st)
			})
		},
	}
	cmd.Flags().BoolVar(&seedMemory, "seed", true, "seed the memory store on start")
	return cmd
}

func (a *app) processor() payment.Processor {
	if a.cfg.Stripe.SecretKey == "" {
		a.log.Warn("no stripe.secret_key configured, using local payment intents")
		return payment.LocalProcessor{}
	}
	return payment.NewStripeProcessor(a.cfg.Stripe.SecretKey, a.cfg.Stripe.Currency)
}

func (a *app) serve(ctx context.Context, st store.Store) error {
	cfg := a.cfg
	fees := checkout.FeePolicy{
		FreeDeliveryThreshold: cfg.Checkout.FreeDeliveryThreshold,
		DeliveryFee:           cfg.Checkout.DeliveryFee,
	}
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)

	router := api.NewRouter(api.Deps{
		Catalog:  service.NewCatalogService(st, a.log),
		Baskets:  service.NewBasketService(st, a.log),
		Orders:   service.NewOrderService(st, fees, a.log),
		Payments: service.NewPaymentService(st, a.processor(), payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret), fees, a.log),
		Accounts: service.NewAccountService(st, tokens, a.log),
		Tokens:   tokens,
		Buyers: identity.NewResolver(identity.CookieConfig{
			Name:     cfg.Cookie.Name,
			MaxAge:   cfg.Cookie.MaxAge,
			Secure:   cfg.Cookie.Secure,
			SameSite: identity.ParseSameSite(cfg.Cookie.SameSite),
		}),
		Store:          st,
		Log:            a.log,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Development:    cfg.Development(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", srv.Addr, "store", cfg.Store.Kind, "env", cfg.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
