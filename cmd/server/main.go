package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/tendant/simple-upload/pkg/uploadroute"
	"github.com/tendant/simple-upload/pkg/uploadroute/config"
	"github.com/tendant/simple-upload/pkg/uploadroute/httpapi"
)

func main() {
	serverConfig, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	router, err := serverConfig.BuildRouter(defineRoutes()...)
	if err != nil {
		log.Fatalf("Failed to build upload router: %v", err)
	}

	handler := httpapi.NewHandler(router,
		httpapi.WithDebug(serverConfig.Debug),
		httpapi.WithLogger(slog.Default()),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	handler.Mount(r, "/api/upload")

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: r,
	}

	go func() {
		log.Printf("Upload server starting on port %s (env: %s, provider: %s)",
			serverConfig.Port, serverConfig.Environment, serverConfig.Provider.Type)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

// defineRoutes declares the upload routes this server exposes. Middleware
// and hooks are code, so routes live here rather than in config.
func defineRoutes() []*uploadroute.Route {
	imageUpload := uploadroute.NewRoute("imageUpload", uploadroute.ImageSchema(),
		uploadroute.WithMaxSize(5*1024*1024),
		uploadroute.WithAllowedTypes("image/jpeg", "image/png"),
		uploadroute.WithUploadCompleteHook(func(ctx context.Context, event *uploadroute.UploadCompleteEvent) error {
			slog.Info("image uploaded", "key", event.Key, "url", event.URL)
			return nil
		}),
	)

	documentUpload := uploadroute.NewRoute("documentUpload", uploadroute.FileSchema(),
		uploadroute.WithMaxSize(25*1024*1024),
		uploadroute.WithAllowedExtensions(".pdf", ".doc", ".docx", ".txt"),
	)

	return []*uploadroute.Route{imageUpload, documentUpload}
}
