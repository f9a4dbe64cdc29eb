package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/auxparty/auxparty/internal/api"
	"github.com/auxparty/auxparty/internal/auth"
	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/party"
	"github.com/auxparty/auxparty/internal/storage/sqlite"
	"github.com/auxparty/auxparty/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// Setup structured logging (level from LOG_LEVEL)
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/auxparty.db")
	port := getEnv("PORT", "8080")
	staticPath := getEnv("STATIC_PATH", "./static")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "auxparty-dev-secret"
		slog.Warn("JWT_SECRET not set, using insecure development secret")
	}

	// Initialize SQLite storage
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	broker := broadcast.New()
	coord := party.New(store, broker)
	tokens := auth.NewJWTManager(jwtSecret, tokenDuration)

	mux := http.NewServeMux()
	api.New(coord, broker, tokens).Register(mux)

	// Serve static files for the frontend, if present
	staticDir, err := filepath.Abs(staticPath)
	if err != nil || !dirExists(staticDir) {
		slog.Warn("Static directory not found, serving API only", "path", staticPath)
	} else {
		slog.Info("Serving static files", "path", staticDir)
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/metrics" {
				http.NotFound(w, r)
				return
			}

			urlPath := r.URL.Path
			if urlPath == "/" {
				urlPath = "/index.html"
			}

			filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
			if _, err := os.Stat(filePath); os.IsNotExist(err) {
				// SPA-like behavior: unknown paths get index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}

			http.ServeFile(w, r, filePath)
		})
	}

	// Add logging and CORS middleware
	handler := api.Logging(api.CORS(mux))

	// Wrap with h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
