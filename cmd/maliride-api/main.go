// README: Entry point; loads config, wires stores and services, serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maliride/internal/config"
	"maliride/internal/events"
	httptransport "maliride/internal/http"
	"maliride/internal/infra"
	"maliride/internal/modules/cancellation"
	"maliride/internal/modules/commission"
	"maliride/internal/modules/driver"
	"maliride/internal/modules/pricing"
	"maliride/internal/modules/promotion"
	"maliride/internal/modules/stats"
	"maliride/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		driverStore driver.Store
		tripStore   trip.Store
		cancelOpts  []cancellation.EngineOption
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.DB.Migrate {
			if err := infra.Migrate(cfg.DB.DSN); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err)
		}
		defer dbPool.Close()
		driverStore = driver.NewPostgresStore(dbPool)
		tripStore = trip.NewPostgresStore(dbPool)
		cancelOpts = append(cancelOpts, cancellation.WithCommitter(cancellation.NewPostgresCommitter(dbPool)))
	default:
		log.Printf("using in-memory storage; data is lost on restart")
		driverStore = driver.NewMemoryStore()
		tripStore = trip.NewMemoryStore()
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQP.URL != "" {
		rabbit, err := infra.NewRabbitPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("amqp: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	tiers := make([]commission.Tier, 0, len(cfg.Commission))
	for _, t := range cfg.Commission {
		tiers = append(tiers, commission.Tier{MinTrips: t.MinTrips, Pct: t.Pct})
	}
	selector, err := commission.NewSelector(tiers)
	if err != nil {
		log.Fatalf("commission tiers: %v", err)
	}

	pricingSvc := pricing.NewService(pricing.Rates{BaseFare: cfg.Pricing.BaseFare, PerMile: cfg.Pricing.PerMile})
	promos := promotion.NewResolver(cfg.Promotions)

	ledgerOpts := []trip.LedgerOption{trip.WithPublisher(publisher), trip.WithCities(cfg.Cities)}
	var activity stats.ActivityCounter
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		index := driver.NewActivityIndex(redisClient)
		ledgerOpts = append(ledgerOpts, trip.WithActivity(index))
		activity = index
	}

	policy := cancellation.Policy{
		FreeWindow:    cfg.Cancellation.FreeWindow,
		LateFeeRate:   cfg.Cancellation.LateFeeRate,
		DriverFeeRate: cfg.Cancellation.DriverFeeRate,
		RatingPenalty: cfg.Cancellation.RatingPenalty,
		MinRating:     cfg.Cancellation.MinRating,
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Pricing:      pricingSvc,
		Promotions:   promos,
		Drivers:      driver.NewService(driverStore, cfg.Cities),
		Ledger:       trip.NewLedger(tripStore, driverStore, pricingSvc, promos, selector, ledgerOpts...),
		Trips:        trip.NewService(tripStore, publisher),
		Cancellation: cancellation.NewEngine(tripStore, driverStore, policy, publisher, cancelOpts...),
		Stats:        stats.NewService(tripStore, driverStore, selector, activity),
		CORSOrigins:  cfg.HTTP.CORSOrigins,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("maliride api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
