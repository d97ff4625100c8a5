package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	securebridge "github.com/opengovern/secure-bridge"
	"github.com/opengovern/secure-bridge/adapters"
	"github.com/opengovern/secure-bridge/jsonvalue"
	"github.com/opengovern/secure-bridge/mock"
)

type cliOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	output     string
	timeout    time.Duration
}

// session is what every API command runs against.
type session struct {
	bridge  *securebridge.SecureBridge
	log     logr.Logger
	closeFn func() error
	sync    func()
}

func (s *session) Close() {
	if s.closeFn != nil {
		_ = s.closeFn()
	}
	s.sync()
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:   "securebridge",
		Short: "Secure client for the clinic dashboard API",
		Long: `securebridge calls the dashboard API through the secure request pipeline:
rate limiting, session checks, payload validation and sanitization.

Configuration is read from SECUREBRIDGE_* environment variables and an
optional YAML file.

Example:
  securebridge login --email manager@clinic.test
  securebridge get /patients?page=1
  securebridge post /patients --data '{"name":"Ada","age":36}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (YAML)")
	pf.StringVar(&opts.baseURL, "base-url", "", "Override the API base URL")
	pf.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	pf.StringVarP(&opts.output, "output", "o", "json", "Output format (json, yaml)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout")

	root.AddCommand(
		newReadCmd(opts, http.MethodGet),
		newReadCmd(opts, http.MethodDelete),
		newWriteCmd(opts, http.MethodPost),
		newWriteCmd(opts, http.MethodPut),
		newWriteCmd(opts, http.MethodPatch),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newWatchCmd(opts),
		newServeMockCmd(opts),
	)
	return root
}

func openSession(ctx context.Context, opts *cliOptions, reg prometheus.Registerer) (*session, error) {
	cfg, err := securebridge.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.baseURL, "/")
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, syncFn, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	cc, closeFn, err := adapters.NewClientContext(ctx, cfg)
	if err != nil {
		syncFn()
		return nil, err
	}
	cc.Navigator = securebridge.NavigatorFunc(func(_ context.Context, reason string) {
		fmt.Fprintf(os.Stderr, "Session ended (%s). Run `securebridge login` to sign in again.\n", reason)
	})

	bridgeOpts := []securebridge.Option{securebridge.WithLogger(log)}
	if cfg.Metrics.Enabled && reg != nil {
		bridgeOpts = append(bridgeOpts, securebridge.WithMetrics(securebridge.NewMetrics(reg)))
	}
	log.V(1).Info("session opened", "baseURL", cfg.BaseURL, "tokenStore", cfg.TokenStore.Backend, "rateLimit", cfg.RateLimit.Backend)
	return &session{
		bridge:  securebridge.NewSecureBridge(cfg, cc, bridgeOpts...),
		log:     log,
		closeFn: closeFn,
		sync:    syncFn,
	}, nil
}

func newLogger(cfg securebridge.LogConfig) (logr.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zapLogger, err := zc.Build()
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(zapLogger), func() { _ = zapLogger.Sync() }, nil
}

func newReadCmd(opts *cliOptions, method string) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <endpoint>",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			var reqOpts []securebridge.RequestOption
			if public {
				reqOpts = append(reqOpts, securebridge.WithoutAuth())
			}
			var resp *securebridge.APIResponse
			if method == http.MethodGet {
				resp, err = s.bridge.Get(cmd.Context(), args[0], reqOpts...)
			} else {
				resp, err = s.bridge.Delete(cmd.Context(), args[0], reqOpts...)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, resp.Data)
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Do not attach the session token")
	return cmd
}

func newWriteCmd(opts *cliOptions, method string) *cobra.Command {
	var data, file string
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <endpoint>",
		Short: fmt.Sprintf("Send a %s request with a JSON body", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(data, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			var resp *securebridge.APIResponse
			switch method {
			case http.MethodPost:
				resp, err = s.bridge.Post(cmd.Context(), args[0], body)
			case http.MethodPut:
				resp, err = s.bridge.Put(cmd.Context(), args[0], body)
			default:
				resp, err = s.bridge.Patch(cmd.Context(), args[0], body)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, resp.Data)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the JSON body from a file, - for stdin")
	return cmd
}

func readBody(data, file string, stdin io.Reader) (jsonvalue.Value, error) {
	var raw []byte
	switch {
	case data != "" && file != "":
		return nil, fmt.Errorf("use either --data or --file, not both")
	case data != "":
		raw = []byte(data)
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		return nil, nil
	}
	v, err := jsonvalue.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("request body: %w", err)
	}
	return v, nil
}

func newLoginCmd(opts *cliOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SECUREBRIDGE_PASSWORD")
			}
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			tok, err := s.bridge.Login(cmd.Context(), securebridge.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (role %s), session valid until %s\n",
				tok.Subject(), tok.Claims.Role, tok.ExpiresAt().Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or SECUREBRIDGE_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.bridge.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the claims of the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			tok, err := s.bridge.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, map[string]interface{}{
				"subject":   tok.Subject(),
				"role":      tok.Claims.Role,
				"tenantId":  tok.Claims.TenantID,
				"expiresAt": tok.ExpiresAt().UTC().Format(time.RFC3339),
			})
		},
	}
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	var interval time.Duration
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch <endpoint>",
		Short: "Poll an endpoint and print each response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			s, err := openSession(ctx, opts, reg)
			if err != nil {
				return err
			}
			defer s.Close()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						s.log.Error(err, "metrics server failed")
					}
				}()
				defer srv.Close()
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				resp, err := s.bridge.Get(ctx, args[0])
				switch {
				case err == nil:
					if rerr := render(cmd.OutOrStdout(), opts.output, resp.Data); rerr != nil {
						return rerr
					}
				case securebridge.KindOf(err) == securebridge.KindUnauthorized:
					return err
				default:
					s.log.Info("poll failed", "endpoint", args[0], "kind", string(securebridge.KindOf(err)), "error", err.Error())
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (requires metrics.enabled)")
	return cmd
}

func newServeMockCmd(opts *cliOptions) *cobra.Command {
	var addr, email, password, role string
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run an in-memory dashboard API for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := opts.logLevel
			if level == "" {
				level = "info"
			}
			log, syncFn, err := newLogger(securebridge.LogConfig{Level: level})
			if err != nil {
				return err
			}
			defer syncFn()

			backend := mock.NewBackend()
			backend.AddUser(mock.User{Email: email, Password: password, Name: "Local Admin", Role: role})

			mux := http.NewServeMux()
			mux.Handle("/api/", http.StripPrefix("/api", backend))
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info("mock dashboard API listening", "addr", addr, "user", email, "role", role)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3001", "Listen address")
	cmd.Flags().StringVar(&email, "email", "admin@clinic.test", "Login email of the seeded account")
	cmd.Flags().StringVar(&password, "password", "admin-pass", "Password of the seeded account")
	cmd.Flags().StringVar(&role, "role", "manager", "Role of the seeded account")
	return cmd
}

func render(w io.Writer, format string, data interface{}) error {
	if v, ok := data.(jsonvalue.Value); ok {
		data = jsonvalue.ToGo(v)
	}
	switch format {
	case "yaml":
		data = yamlNumbers(data)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// yamlNumbers turns json.Number leaves into int64 or float64 so YAML prints
// them unquoted.
func yamlNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []interface{}:
		for i := range t {
			t[i] = yamlNumbers(t[i])
		}
	case map[string]interface{}:
		for k := range t {
			t[k] = yamlNumbers(t[k])
		}
	}
	return v
}

func printAPIError(w io.Writer, e *securebridge.Error) {
	fmt.Fprintf(w, "Error: %s\n", e.Message)
	if e.HTTPStatus != 0 {
		fmt.Fprintf(w, "  status: %d\n", e.HTTPStatus)
	}
	fmt.Fprintf(w, "  kind: %s\n", e.Kind)
	if e.RetryAfter > 0 {
		fmt.Fprintf(w, "  retry after: %s\n", e.RetryAfter)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(w, "  - %s: %s\n", f.Field, f.Message)
	}
}
