package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/monitoring"
	"github.com/marquee-data/marquee-cli/internal/pipeline"
	"github.com/marquee-data/marquee-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status and ingest HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			hours := queryInt(req, "hours", 24)
			snap, err := monitoring.NewCollector(env.Store, env.Gateway).Collect(req.Context(), hours)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"snapshot": snap,
				"alerts":   monitoring.Check(snap, monitoring.DefaultThresholds()),
			})
		})

		r.Get("/changes", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			changes, err := env.Store.ListChanges(req.Context(), store.ChangeFilter{
				SubjectID:  q.Get("subject"),
				Confidence: model.Confidence(q.Get("confidence")),
				Severity:   model.Severity(q.Get("severity")),
				Limit:      queryInt(req, "limit", 100),
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, changes)
		})

		r.Get("/audit", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			notes, err := env.Store.ListAudit(req.Context(), store.AuditFilter{
				SubjectID: q.Get("subject"),
				Kind:      model.AuditKind(q.Get("kind")),
				Limit:     queryInt(req, "limit", 100),
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, notes)
		})

		r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
			var task pipeline.Task
			if err := json.NewDecoder(req.Body).Decode(&task); err != nil {
				writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
				return
			}
			if task.SubjectID == "" || task.SourceURL == "" {
				writeError(w, http.StatusBadRequest, eris.New("subject_id and source_url are required"))
				return
			}

			// Run ingestion asynchronously against the server lifetime,
			// not the request's.
			go func() {
				out, err := env.Pipeline.Process(ctx, task)
				if err != nil {
					zap.L().Error("ingest failed",
						zap.String("subject", task.SubjectID),
						zap.String("url", task.SourceURL),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("ingest complete",
					zap.String("subject", task.SubjectID),
					zap.String("url", task.SourceURL),
					zap.Int("changes", len(out.Changes)),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":  "accepted",
				"subject": task.SubjectID,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(req *http.Request, key string, def int) int {
	if raw := req.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
