// Package main provides the Ship server entry point: the dashboard API that
// gates, audits and applies mutating actions on Swarm services or Kubernetes
// deployments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/shipops/ship/pkg/actions"
	"github.com/shipops/ship/pkg/events"
	"github.com/shipops/ship/pkg/identity"
	"github.com/shipops/ship/pkg/lockout"
	"github.com/shipops/ship/pkg/notify"
	"github.com/shipops/ship/pkg/orchestrator"
)

func main() {
	var (
		listenAddr string
		dataFile   string
		policyFile string
	)

	flag.StringVar(&listenAddr, "listen", ":3000", "Address to listen on")
	flag.StringVar(&dataFile, "data", "/data/ship.json", "Path to the local audit log (Swarm mode)")
	flag.StringVar(&policyFile, "lockout-policy", "", "Optional lockout policy YAML file (overrides LOCKOUT_* env)")
	flag.Parse()

	// Initialize glog for fatal startup errors
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	useKubernetes := envBool("KUBERNETES")
	if policyFile == "" {
		policyFile = os.Getenv("SHIP_LOCKOUT_POLICY_FILE")
	}

	logger.Info("starting ship server",
		"listen", listenAddr,
		"kubernetes", useKubernetes,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load the lockout policy. A malformed service regex must stop the
	// process here; the evaluator never re-validates per request.
	policy := lockout.PolicyFromEnv(useKubernetes)
	if policyFile != "" {
		filePolicy, err := lockout.LoadPolicyFile(policyFile)
		if err != nil {
			glog.Fatalf("Failed to load lockout policy file: %v", err)
		}
		policy = filePolicy
		logger.Info("using lockout policy file", "path", policyFile)
	}

	evaluator, err := lockout.NewEvaluator(policy)
	if err != nil {
		glog.Fatalf("Failed to compile lockout policy: %v", err)
	}

	// Select the event store and orchestrator for the active platform.
	// Nothing past this switch branches on the backend again.
	var (
		store events.Store
		orch  orchestrator.Orchestrator
		unit  string
	)
	if useKubernetes {
		k8sCfg, err := rest.InClusterConfig()
		if err != nil {
			glog.Fatalf("Failed to create in-cluster config (is the server running in a pod?): %v", err)
		}
		clientset, err := kubernetes.NewForConfig(k8sCfg)
		if err != nil {
			glog.Fatalf("Failed to create Kubernetes clientset: %v", err)
		}
		dynClient, err := dynamic.NewForConfig(k8sCfg)
		if err != nil {
			glog.Fatalf("Failed to create dynamic Kubernetes client: %v", err)
		}

		namespace := envOrDefault("SHIP_EVENT_NAMESPACE", "default")
		store = events.NewKubernetesStore(dynClient, namespace)
		orch = orchestrator.NewKubernetesOrchestrator(clientset, logger)
		unit = actions.UnitDeployment

		logger.Info("using kubernetes event store", "namespace", namespace)
	} else {
		fileStore, err := events.NewFileStore(dataFile)
		if err != nil {
			glog.Fatalf("Failed to create event store: %v", err)
		}
		swarm, err := orchestrator.NewSwarmOrchestrator(logger)
		if err != nil {
			glog.Fatalf("Failed to create docker client: %v", err)
		}

		store = fileStore
		orch = swarm
		unit = actions.UnitService

		logger.Info("using local event store", "path", fileStore.Path())
	}

	notifier := notify.NewNotifier(notify.ConfigFromEnv(), logger)
	pipeline := actions.NewPipeline(evaluator, store, notifier, unit, logger)

	authHeader := identity.HeaderFromEnv()
	if authHeader == "" {
		logger.Info("no auth header configured, all actions attributed to Anonymous")
	}

	// Start the retention sweep in the background. Zero or negative keep
	// disables it.
	keep := envIntOrDefault("SHIP_RETENTION_KEEP", 100)
	go events.NewRetentionWorker(store, keep, logger).Run(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
	}))
	router.Use(identity.Middleware(authHeader))

	actions.RegisterRoutes(router, pipeline, orch, logger)
	router.Mount("/events", events.Router(store))
	router.Get("/services", actions.ServicesHandler(orch))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	logger.Info("ship server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("ship server stopped")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
