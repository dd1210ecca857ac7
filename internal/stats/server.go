package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"burning-text-bot/internal/cache"

	log "github.com/sirupsen/logrus"
)

// Source is the read side of the generation cache.
type Source interface {
	Stats(now time.Time) cache.Snapshot
}

// Summary is the body served at /.
type Summary struct {
	LatestGifs []string `json:"latest_gifs"`
	TotalGifs  int      `json:"total_gifs"`
	ActiveGifs int      `json:"active_gifs"`
}

// NewMux routes the stats summary, the health check and, when metrics is not
// nil, the prometheus endpoint.
func NewMux(source Source, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", Handler(source, time.Now))
	mux.HandleFunc("GET /health", healthCheckHandler)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

// Handler serves the summary of source at the time returned by now.
func Handler(source Source, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := source.Stats(now())
		summary := Summary{
			LatestGifs: s.Recent,
			TotalGifs:  s.Total,
			ActiveGifs: s.Active,
		}
		if summary.LatestGifs == nil {
			summary.LatestGifs = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			log.Errorf("Failed to write stats response: %v", err)
		}
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Serve runs the stats server on port until ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Failed to shut down stats server: %v", err)
		}
	}()

	log.Infof("Launching stats, metrics and health endpoint on :%d", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
