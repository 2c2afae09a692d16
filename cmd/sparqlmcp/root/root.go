// Package root wires the sparqlmcp command tree.
package root

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sparqlmcp/internal/config"
	mcp "sparqlmcp/internal/mcp"

	// register providers via init
	_ "sparqlmcp/internal/providers/echo"
	_ "sparqlmcp/internal/providers/sparql"
)

var version = "dev"

var flagToolsConfig string

// rootCmd runs the MCP server over stdio. All logging goes to stderr;
// stdout carries only protocol messages.
var rootCmd = &cobra.Command{
	Use:   "sparqlmcp",
	Short: "MCP server exposing SPARQL query tools over stdio",
	Long:  "sparqlmcp speaks JSON-RPC over stdin/stdout, auto-detecting Content-Length and line-delimited framing, and exposes echo, sparqlQuery and authorsByDoi tools. Configure the endpoint via SPARQL_ENDPOINT or a tools.toml.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry()
		if err != nil {
			return err
		}

		srv := mcp.NewServer(reg, version)
		transport := mcp.NewTransport(os.Stdin, os.Stdout)
		logrus.WithField("version", version).Info("starting MCP server on stdio")
		return srv.Serve(cmd.Context(), transport)
	},
}

// buildRegistry assembles the tool registry from the provider config file
// when present, or the built-in echo+sparql pair otherwise.
func buildRegistry() (*mcp.Registry, error) {
	cfg := config.Load()

	entries := []config.ProviderEntry{{Provider: "echo"}, {Provider: "sparql"}}
	cfgPath := flagToolsConfig
	if cfgPath == "" {
		cfgPath = config.DefaultToolsConfigPath(defaultConfigDir())
	}
	if tc, err := config.LoadToolsConfig(cfgPath); err == nil {
		entries = tc.Providers
		logrus.WithField("path", cfgPath).Info("loaded tools config")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load tools config: %w", err)
	}

	reg := mcp.NewRegistry()
	for _, e := range entries {
		f := mcp.Lookup(e.Provider)
		if f == nil {
			return nil, fmt.Errorf("unknown provider: %s", e.Provider)
		}

		resolved := *cfg
		resolved.ApplyEntry(e)
		opts := map[string]any{
			"endpoint":  resolved.Endpoint,
			"timeout":   resolved.Timeout,
			"cachePath": resolved.CachePath,
			"cacheTTL":  resolved.CacheTTL,
		}

		backends, err := f(opts)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", e.Provider, err)
		}
		reg.Add(backends...)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"timeout":  cfg.Timeout,
		"tools":    len(reg.Tools()),
	}).Debug("registry built")
	return reg, nil
}

func defaultConfigDir() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(usr.HomeDir, ".config", "sparqlmcp")
}

// Execute runs the Cobra root command.
func Execute() {
	// Load environment from .env if present and configure logger
	_ = godotenv.Load()
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" && (os.Getenv("DEBUG") == "1" || strings.EqualFold(os.Getenv("DEBUG"), "true")) {
		level = "debug"
	}
	switch level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	// Optional file logging via LOG_FILE. If set, duplicate output to file.
	var logFile *os.File
	if lf := strings.TrimSpace(os.Getenv("LOG_FILE")); lf != "" {
		if strings.HasPrefix(lf, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				lf = filepath.Join(home, strings.TrimPrefix(lf, "~"))
			}
		}
		if err := os.MkdirAll(filepath.Dir(lf), 0o755); err == nil {
			f, err := os.OpenFile(lf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				logFile = f
				logrus.SetOutput(io.MultiWriter(os.Stderr, f))
				logrus.WithField("file", lf).Info("logging to file enabled")
			} else {
				logrus.WithError(err).Warn("failed to open LOG_FILE; using stderr only")
			}
		} else {
			logrus.WithError(err).Warn("failed to create directory for LOG_FILE; using stderr only")
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagToolsConfig, "tools-config", "", "Path to the tool provider config (default ~/.config/sparqlmcp/tools.toml)")
}
