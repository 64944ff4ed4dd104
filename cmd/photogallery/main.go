package main

import (
	// Standard library
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	// Internal packages
	"photogallery/internal/auth"
	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/events"
	"photogallery/internal/middleware"
	"photogallery/internal/router"

	// Third-party
	"github.com/gin-gonic/gin"
)

// checkOrCreateDir makes sure dirPath exists and is a directory, creating it if needed.
// Any other situation is fatal.
func checkOrCreateDir(dirPath string) {
	if dirPath == "" {
		log.Fatalf("FATAL: directory path must not be empty.")
	}
	// Refuse the root or the working directory by accident.
	if dirPath == "/" || dirPath == "." {
		log.Fatalf("FATAL: refusing unsafe directory path: %s", dirPath)
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		log.Printf("Directory %s not found, creating...", dirPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			log.Fatalf("FATAL: cannot create directory %s: %v", dirPath, err)
		}
		return
	}
	if err != nil {
		log.Fatalf("FATAL: cannot check directory %s: %v", dirPath, err)
	}
	if !info.IsDir() {
		log.Fatalf("FATAL: %s exists but is not a directory.", dirPath)
	}
}

func main() {
	// --- 1. Configuration ---
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	if cfg.CookieSecret == config.Default().CookieSecret {
		log.Println("WARNING: COOKIE_SECRET is the built-in fallback, set a real secret in production.")
	}
	checkOrCreateDir(filepath.Dir(cfg.DBPath))
	checkOrCreateDir(cfg.UploadPath)

	// --- 2. Dependencies ---
	if err := database.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.Close()

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	oracle := &auth.SessionOracle{
		Authorized: cfg.IsAuthorized,
		Lookup:     database.GetUserByEmail,
	}

	// --- 3. Router ---
	gin.SetMode(gin.ReleaseMode)
	engine, err := router.New(router.Deps{
		Config:    cfg,
		Oracle:    oracle,
		Publisher: publisher,
		GuardObserver: func(c *gin.Context, s middleware.State) {
			if s != middleware.Pending {
				log.Printf("Route guard: %s %s -> %s", c.Request.Method, c.Request.URL.Path, s)
			}
		},
	})
	if err != nil {
		log.Fatalf("Error building router: %v", err)
	}
	// Behind a reverse proxy in Docker; trust it for client IPs.
	if err := engine.SetTrustedProxies(nil); err != nil {
		log.Fatalf("Error setting trusted proxies: %v", err)
	}

	// --- 4. Serve ---
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Gallery listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
