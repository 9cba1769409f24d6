// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/auth"
	"github.com/avolkov/pvparena/internal/cache"
	"github.com/avolkov/pvparena/internal/config"
	"github.com/avolkov/pvparena/internal/database"
	"github.com/avolkov/pvparena/internal/handlers"
	"github.com/avolkov/pvparena/internal/ledger"
	"github.com/avolkov/pvparena/internal/middleware"
	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
	"github.com/avolkov/pvparena/internal/worker"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		log.Fatalf("redis: %v", err)
	}

	led := ledger.NewPostgres(database.DB)

	gateway, receiver := buildGateway(cfg, led, logger)

	svc := wager.NewService(wager.Params{
		MinStake:      cfg.MinStake,
		FeeBps:        cfg.FeeBps,
		RefundLock:    cfg.RefundLock,
		AdminID:       cfg.AdminID,
		FeeReceiverID: cfg.FeeReceiverID,
	}, wager.NewRegistry(), led, gateway, logger)

	// Terminal transitions feed the audit trail: a history row in Postgres
	// and a settlement record on the Redis queue for the reconciler.
	svc.OnFinalized = func(ctx context.Context, rec wager.HistoryRecord) {
		if err := database.InsertLobbyHistory(ctx, rec); err != nil {
			logger.Errorf("failed to persist lobby history for %s: %v", rec.LobbyID, err)
		}
		err := cache.PublishSettlement(ctx, cache.SettlementRecord{
			LobbyID:         rec.LobbyID,
			Creator:         rec.Creator,
			Status:          string(rec.Status),
			Stake:           rec.Stake,
			WinnerSide:      rec.WinnerSide,
			RandomnessValue: rec.RandomnessValue,
			Pot:             rec.Pot,
			Fee:             rec.Fee,
			PayoutPerWinner: rec.PayoutPerWinner,
			TotalMoved:      rec.TotalMoved,
			Timestamp:       time.Now().Unix(),
		})
		if err != nil {
			logger.Errorf("failed to publish settlement for %s: %v", rec.LobbyID, err)
		}
	}

	srv := handlers.NewServer(svc, logger)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// lobby endpoints
	logged := middleware.LogMiddleware(logger)
	mux.Handle("/lobby/create", logged(handlers.CreateLobbyHandler(srv)))
	mux.Handle("/lobby/list", logged(handlers.ListLobbiesHandler(srv)))
	mux.Handle("/lobby/ws/", logged(handlers.LobbyWSHandler(logger, srv)))
	mux.Handle("/lobby/", logged(lobbyActionMux(srv)))

	// oracle fulfillment webhook (push/legacy backends only)
	if receiver != nil {
		mux.Handle("/oracle/callback", logged(handlers.OracleCallbackHandler(srv, receiver)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resolver := &worker.Resolver{Svc: svc, Interval: cfg.ResolveInterval, Logger: logger}
	refunder := &worker.Refunder{
		Svc:             svc,
		Interval:        cfg.RefundInterval,
		PendingDeadline: cfg.PendingDeadline,
		OpenExpiry:      cfg.OpenExpiry,
		Logger:          logger,
	}
	go resolver.Run(ctx)
	go refunder.Run(ctx)

	addr := ":" + cfg.Port
	logger.Infof("Running on %s (vrf backend: %s)", addr, cfg.VRFBackend)

	server := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		log.Fatalf("server exited: %v", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
}

// lobbyActionMux routes /lobby/{id}/{action} to the matching handler.
func lobbyActionMux(srv *handlers.Server) http.Handler {
	join := handlers.JoinHandler(srv)
	joinFinal := handlers.JoinFinalHandler(srv)
	resolve := handlers.ResolveHandler(srv)
	refund := handlers.RefundHandler(srv)
	forceRefund := handlers.ForceRefundHandler(srv)
	history := handlers.LobbyHistoryHandler(srv)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case hasAction(r.URL.Path, "join_final"):
			joinFinal.ServeHTTP(w, r)
		case hasAction(r.URL.Path, "join"):
			join.ServeHTTP(w, r)
		case hasAction(r.URL.Path, "resolve"):
			resolve.ServeHTTP(w, r)
		case hasAction(r.URL.Path, "force_refund"):
			forceRefund.ServeHTTP(w, r)
		case hasAction(r.URL.Path, "refund"):
			refund.ServeHTTP(w, r)
		case hasAction(r.URL.Path, "history"):
			history.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// hasAction reports whether the path's final segment equals action.
func hasAction(path, action string) bool {
	if len(path) < len(action)+1 {
		return false
	}
	return path[len(path)-len(action)-1:] == "/"+action
}

// buildGateway selects the randomness backend from configuration. The
// second return value is non-nil for callback-based backends and is wired
// to the oracle webhook.
func buildGateway(cfg *config.Config, led ledger.Ledger, logger *logrus.Logger) (vrf.Gateway, handlers.CallbackReceiver) {
	switch cfg.VRFBackend {
	case "pull":
		return vrf.NewPullOracle(cfg.OracleURL, logger), nil
	case "legacy":
		o := vrf.NewLegacyOracle(cfg.LegacyOracleURL, cache.NewFulfillmentStore(cache.Rdb), logger)
		return o, o
	case "local":
		logger.Warn("using the insecure local-entropy randomness fallback; not for production stakes")
		return vrf.NewLocalEntropy(led.CheckpointHash), nil
	default:
		o := vrf.NewPushOracle(cfg.OracleURL, cache.NewFulfillmentStore(cache.Rdb), logger)
		return o, o
	}
}
