package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vcoch/intellilearn/internal/handler"
	appI18n "github.com/vcoch/intellilearn/internal/i18n"
	"github.com/vcoch/intellilearn/internal/model"
	"github.com/vcoch/intellilearn/internal/quiz"
	"github.com/vcoch/intellilearn/internal/session"
	"github.com/vcoch/intellilearn/internal/sheets"
	"github.com/vcoch/intellilearn/internal/webhook"
)

const (
	// Quiz generation on the webhook side can take a while.
	webhookTimeoutDefault = 60 * time.Second
	sheetTimeoutDefault   = 15 * time.Second
	examTTLDefault        = 2 * time.Hour
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "intellilearn",
		Short: "Adaptive tutoring backend for the IntelliLearn SPA",
	}

	serve := serveCmd()
	root.AddCommand(serve, rosterCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `intellilearn --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("webhook-url", "https://vcoch.app.n8n.cloud/webhook-test/intellilearn", "Quiz/grading webhook endpoint")
	f.Duration("webhook-timeout", webhookTimeoutDefault, "Timeout for webhook calls")
	f.String("sheet-id", "", "Google Sheets spreadsheet ID for the profile store (required)")
	f.Duration("sheet-timeout", sheetTimeoutDefault, "Timeout for sheet reads")
	f.String("sheet-students-tab", "studentprofile", "Sheet tab with student profiles")
	f.String("sheet-metrics-tab", "metrichistory", "Sheet tab with metric history")
	f.String("sheet-assessments-tab", "assessmentsummary", "Sheet tab with assessment summaries")
	f.IntP("num-questions", "n", 10, "Default number of questions per quiz")
	f.StringP("lang", "l", "vi", "UI language for messages (vi, en)")
	f.Duration("session-ttl", session.DefaultTTL, "Login session lifetime")
	f.Duration("exam-ttl", examTTLDefault, "Idle exam session lifetime")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /vn)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("cors-origin", "", "Allowed SPA origin for CORS (empty disables CORS)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Print the student directory as JSON",
		RunE:  runRoster,
	}
	f := cmd.Flags()
	f.String("sheet-id", "", "Google Sheets spreadsheet ID for the profile store (required)")
	f.Duration("sheet-timeout", sheetTimeoutDefault, "Timeout for sheet reads")
	f.String("sheet-students-tab", "studentprofile", "Sheet tab with student profiles")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("sheet-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTELLILEARN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("intellilearn")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/intellilearn")
	v.AddConfigPath("/etc/intellilearn")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func sheetsClient(v *viper.Viper) (*sheets.Client, error) {
	sheetID := v.GetString("sheet-id")
	if sheetID == "" {
		return nil, fmt.Errorf("sheet-id is required: set --sheet-id flag or INTELLILEARN_SHEET_ID env var")
	}
	return sheets.New(sheets.Config{
		SheetID:        sheetID,
		StudentsTab:    v.GetString("sheet-students-tab"),
		MetricsTab:     v.GetString("sheet-metrics-tab"),
		AssessmentsTab: v.GetString("sheet-assessments-tab"),
		Timeout:        v.GetDuration("sheet-timeout"),
	}), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Remote collaborators.
	dir, err := sheetsClient(v)
	if err != nil {
		return err
	}
	svc := webhook.New(v.GetString("webhook-url"), v.GetDuration("webhook-timeout"))

	exams := quiz.NewManager(svc, v.GetDuration("exam-ttl"))
	auth := session.NewStore(v.GetDuration("session-ttl"))

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServeConfig{
		NumQuestions:  v.GetInt("num-questions"),
		Lang:          lang,
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		CORSOrigin:    v.GetString("cors-origin"),
	}

	h, err := handler.New(dir, exams, auth, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"webhook_url", v.GetString("webhook-url"),
		"sheet_id", v.GetString("sheet-id"),
		"lang", lang,
		"num_questions", cfg.NumQuestions,
		"base_path", basePath,
		"cors_origin", cfg.CORSOrigin,
	)
	return http.ListenAndServe(addr, r)
}

func runRoster(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir, err := sheetsClient(v)
	if err != nil {
		return err
	}

	students, err := dir.Students(context.Background())
	if err != nil {
		return fmt.Errorf("fetch roster: %w", err)
	}

	data, err := json.MarshalIndent(students, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
