package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	fqdn "github.com/Showmax/go-fqdn"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"checkoutsdk/internal/common/fsutil"
	"checkoutsdk/internal/config"
	"checkoutsdk/pkg/checkout"
)

const defaultAddr = ":8080"

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
	addr       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "checkoutd",
		Short:         "Checkout widget bridge daemon and utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before CHECKOUTD_* overrides (missing file is ignored)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults CHECKOUTD_LOG_LEVEL or info)")
	pf.BoolVar(&opts.logJSON, "log-json", false, "Log JSON lines instead of console output")

	root.AddCommand(newServeCmd(opts), newURLCmd(opts), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the SDK version reported to the widget",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "checkoutd %s\n", checkout.Version)
			return err
		},
	}
}

// loadEnvFile exports the dotenv file into the process environment.
// Variables already set win over the file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// resolveConfig layers the config file, CHECKOUTD_* variables and explicit
// flags, then fills defaults.
func resolveConfig(cmd *cobra.Command, opts *options, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		path, err := fsutil.ExpandHome(opts.configPath)
		if err != nil {
			return cfg, err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg, err := config.ApplyEnv(cfg, getenv)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = opts.logJSON
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = opts.addr
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HostURL == "" {
		cfg.HostURL = defaultHostURL(cfg.Addr)
	}
	if err := fsutil.ExpandAll(&cfg.LogFile); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// defaultHostURL derives the embedding origin from this machine's FQDN and
// the listen port.
func defaultHostURL(addr string) string {
	host, err := fqdn.FqdnHostname()
	if err != nil || host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "localhost"
	}
	host = strings.TrimSuffix(host, ".")
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" || port == "0" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}
