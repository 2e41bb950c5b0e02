package app

import (
	"net/http"
	"time"

	authapi "upvote/cmd/internal/auth/api"
	"upvote/cmd/internal/feed"
	postsapi "upvote/cmd/internal/posts/api"

	"github.com/jackc/pgx/v5/pgxpool"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	dbEnabled bool,
	auth *authapi.Handler,
	postsHandler *postsapi.Handler,
	feedGW *feed.Gateway,
	metrics *Metrics,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbEnabled && dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	auth.Register(mux)
	postsHandler.Register(mux)

	if feedGW != nil {
		mux.HandleFunc("/ws/votes", feedGW.HandleWS)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
}
