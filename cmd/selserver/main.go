package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edumap/selserver/internal/handler"
	appI18n "github.com/edumap/selserver/internal/i18n"
	"github.com/edumap/selserver/internal/llm"
	"github.com/edumap/selserver/internal/mail"
	"github.com/edumap/selserver/internal/metrics"
	"github.com/edumap/selserver/internal/report"
	"github.com/edumap/selserver/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "selserver",
		Short: "Social-emotional learning assessment server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assessment server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "selserver.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Default message language (en, he)")
	f.String("smtp-host", "", "SMTP relay host (empty disables mail, codes are logged)")
	f.Int("smtp-port", 587, "SMTP relay port")
	f.String("smtp-user", "", "SMTP username")
	f.String("smtp-password", "", "SMTP password")
	f.String("smtp-from", "noreply@selserver.local", "From address for reset codes")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a class report as XLSX",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "selserver.db", "SQLite database path")
	f.String("class-code", "", "Class code to export (required)")
	f.StringP("output", "o", "", "Output file path (default derives from the class)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("class-code")

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

	v.SetEnvPrefix("SELSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("selserver")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/selserver")
	v.AddConfigPath("/etc/selserver")
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

func runServe(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	sender := mail.NewSender(mail.Config{
		Host:     v.GetString("smtp-host"),
		Port:     v.GetInt("smtp-port"),
		Username: v.GetString("smtp-user"),
		Password: v.GetString("smtp-password"),
		From:     v.GetString("smtp-from"),
	})

	h := handler.New(db, llmClient, sender)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"mail_enabled", v.GetString("smtp-host") != "",
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	code := v.GetString("class-code")
	class, err := db.GetClassByCode(code)
	if err != nil {
		return fmt.Errorf("load class: %w", err)
	}
	if class == nil {
		return fmt.Errorf("class %q not found", code)
	}

	var studentIDs []string
	seen := make(map[string]bool)
	for _, sub := range class.Submissions {
		if sub.StudentID != "" && !seen[sub.StudentID] {
			seen[sub.StudentID] = true
			studentIDs = append(studentIDs, sub.StudentID)
		}
	}
	usernames, err := db.StudentUsernames(studentIDs)
	if err != nil {
		return fmt.Errorf("load usernames: %w", err)
	}

	f, err := report.ClassReportWorkbook(*class, usernames)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	outPath := v.GetString("output")
	if outPath == "" {
		outPath = report.ClassReportFilename(*class)
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	slog.Info("exported class report", "classCode", code, "path", outPath,
		"submissions", len(class.Submissions))
	return nil
}
