// Package main provides the teamboard command line client for the
// collaboration API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/teamboard/internal/apiclient"
	"github.com/zhouzirui/teamboard/internal/config"
	"github.com/zhouzirui/teamboard/internal/service/collab"
	"github.com/zhouzirui/teamboard/internal/session"
)

const (
	Version = "0.1.0"
	appName = "teamboard"
)

func main() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Session
	client  *apiclient.Client
	svc     *collab.Service
	out     *printer
	metrics *prometheus.Registry
}

type globalFlags struct {
	apiURL      string
	sessionFile string
	output      string
	logLevel    string
	metrics     bool
}

func rootCmd() *cobra.Command {
	var (
		flags globalFlags
		a     = &app{}
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Command line client for the team collaboration API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.dumpMetrics(cmd.ErrOrStderr())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "API base URL (default $TEAMBOARD_API_URL)")
	pf.StringVar(&flags.sessionFile, "session-file", "", "Session file path (default $TEAMBOARD_SESSION_FILE or the user config dir)")
	pf.StringVarP(&flags.output, "output", "o", "table", "Output format (table, json, yaml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flags.metrics, "metrics", false, "Print request metrics to stderr on exit")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no client.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	cmd.AddCommand(
		loginCmd(a),
		signupCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		profileCmd(a),
		passwordCmd(a),
		teamsCmd(a),
		projectsCmd(a),
		tasksCmd(a),
		subtasksCmd(a),
		commentsCmd(a),
		tagsCmd(a),
		attachmentsCmd(a),
		activitiesCmd(a),
		invitationsCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command, flags globalFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if flags.logLevel != "" {
		if level, err = config.ParseLogLevel(flags.logLevel); err != nil {
			return err
		}
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if a.out, err = newPrinter(cmd.OutOrStdout(), flags.output); err != nil {
		return err
	}

	path := flags.sessionFile
	if path == "" {
		path = cfg.Client.SessionFile
	}
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return err
		}
	}
	if a.session, err = session.New(session.NewFileStorage(path)); err != nil {
		return err
	}

	apiURL := cfg.Client.APIURL
	if flags.apiURL != "" {
		apiURL = strings.TrimRight(flags.apiURL, "/")
	}

	opts := []apiclient.Option{
		apiclient.WithLogger(a.logger),
		apiclient.WithTimeout(cfg.Client.Timeout),
		apiclient.WithRateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst),
		apiclient.WithUserAgent(appName + "/" + Version),
	}
	if flags.metrics {
		a.metrics = prometheus.NewRegistry()
		opts = append(opts, apiclient.WithMetrics(apiclient.NewMetrics(a.metrics)))
	}

	if a.client, err = apiclient.New(apiURL, a.session, opts...); err != nil {
		return err
	}
	a.svc = collab.NewService(a.client)
	a.logger.Debug("Client ready", "api_url", apiURL, "session_file", path, "authenticated", a.session.Authenticated())
	return nil
}

// requireLogin fails fast when no credential is stored.
func (a *app) requireLogin() error {
	if !a.session.Authenticated() {
		return errors.New("not logged in, run `teamboard login` first")
	}
	return nil
}

func (a *app) dumpMetrics(w io.Writer) {
	if a.metrics == nil {
		return
	}
	families, err := a.metrics.Gather()
	if err != nil {
		a.logger.Warn("Failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}
