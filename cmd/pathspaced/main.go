// Package main implements the pathspaced demo server: a PathSpace with
// the built-in device providers mounted, a Prometheus-compatible
// /metrics endpoint, a scene snapshot builder, and a dining-philosophers
// scenario runnable over HTTP for manual exercise.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/layer"
	"github.com/ChristofferGreen/pathspace/pathspace"
	"github.com/ChristofferGreen/pathspace/pkg/metrics"
	"github.com/ChristofferGreen/pathspace/pkg/mid"
	"github.com/ChristofferGreen/pathspace/scene"
)

// Config holds all environment-based configuration.
type Config struct {
	Port               string
	SceneMinRevisions  int
	SceneMinDurationMs int
	CORSOrigin         string
}

func loadConfig() Config {
	return Config{
		Port:               envOr("PORT", "8080"),
		SceneMinRevisions:  envOrInt("SCENE_MIN_REVISIONS", 4),
		SceneMinDurationMs: envOrInt("SCENE_MIN_DURATION_MS", 60_000),
		CORSOrigin:         envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := envOr(key, "")
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	ps := pathspace.New()

	mouse := layer.NewMouse()
	keyboard := layer.NewKeyboard()
	gamepad := layer.NewGamepad()
	discovery := layer.NewDeviceDiscovery()
	stdout := layer.NewStdOut()

	for prefix, provider := range map[string]layer.Provider{
		"/dev/mouse":    mouse,
		"/dev/keyboard": keyboard,
		"/dev/gamepad":  gamepad,
		"/devices":      discovery,
		"/log":          stdout,
	} {
		if err := ps.Mount(prefix, provider); err != nil {
			return fmt.Errorf("mount %s: %w", prefix, err)
		}
	}
	defer ps.Shutdown()

	sceneBuilder := scene.NewBuilder(ps, "/scene/main", reg)
	sceneBuilder.SetRetentionPolicy(scene.RetentionPolicy{
		MinRevisions: cfg.SceneMinRevisions,
		MinDuration:  time.Duration(cfg.SceneMinDurationMs) * time.Millisecond,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("POST /devices", handleRegisterDevice(discovery, logger))
	mux.HandleFunc("POST /diningphilosophers", handleDiningPhilosophers(ps, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("pathspaced"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pathspaced starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleRegisterDevice(d *layer.DeviceDiscovery, logger *slog.Logger) http.HandlerFunc {
	type request struct {
		Class string `json:"class"`
		Name  string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		info := d.Register(req.Class, req.Name)
		logger.Info("device registered", "id", info.ID, "class", info.Class)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}

// handleDiningPhilosophers runs the fork-contention scenario from
// original_source/tests/unit/test_PathSpace_multithreading_scenario.cpp
// against a scratch PathSpace, returning per-philosopher meal counts.
func handleDiningPhilosophers(_ *pathspace.PathSpace, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := runDiningPhilosophers(5, 300*time.Millisecond)
		logger.Info("dining philosophers run complete", "total_meals", result.TotalMeals)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// DiningResult summarizes one run of the scenario.
type DiningResult struct {
	MealsEaten []int64 `json:"meals_eaten"`
	TotalMeals int64   `json:"total_meals"`
}

func runDiningPhilosophers(n int, runFor time.Duration) DiningResult {
	ps := pathspace.New()
	defer ps.Shutdown()

	for i := 0; i < n; i++ {
		ps.Insert(fmt.Sprintf("/fork/%d", i), 1)
	}

	meals := make([]int64, n)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for id := 0; id < n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(id) + 1))
			left, right := id, (id+1)%n
			first, second := left, right
			if first > second {
				first, second = second, first
			}
			firstPath := fmt.Sprintf("/fork/%d", first)
			secondPath := fmt.Sprintf("/fork/%d", second)
			for {
				select {
				case <-stop:
					return
				default:
				}
				f, err := pathspace.Take[int](ps, firstPath, core.Block(50*time.Millisecond))
				if err != nil {
					continue
				}
				s, err := pathspace.Take[int](ps, secondPath, core.Block(50*time.Millisecond))
				if err != nil {
					ps.Insert(firstPath, f)
					continue
				}
				time.Sleep(time.Duration(1+rng.Intn(10)) * time.Millisecond)
				atomic.AddInt64(&meals[id], 1)
				ps.Insert(secondPath, s)
				ps.Insert(firstPath, f)
			}
		}(id)
	}

	time.Sleep(runFor)
	close(stop)
	wg.Wait()

	var total int64
	for _, m := range meals {
		total += m
	}
	return DiningResult{MealsEaten: meals, TotalMeals: total}
}
