// Package cli implements serialctl, the command line front end of the serial
// engine. Commands run the engine in-process with patterns read from a YAML
// file, or talk to a running API server through pkg/client when --server is
// set.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/client"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Environment fallbacks for the connection flags, typically set in .env.
const (
	EnvServer      = "SERIAL_SERVER"
	EnvAPIKey      = "SERIAL_API_KEY"
	EnvPatternFile = "SERIAL_PATTERN_FILE"
)

// Output formats accepted by --output.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputTable = "table"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
	APIKey       string
	PatternFile  string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Client       *client.Client // nil in local mode
	PatternFile  string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration

	backend Backend
}

// Remote reports whether commands go through the API server.
func (c *CLIContext) Remote() bool { return c.Client != nil }

// Backend returns the extraction backend, building the local engine on first
// use so commands that never extract do not read the pattern file.
func (c *CLIContext) Backend() (Backend, error) {
	if c.backend != nil {
		return c.backend, nil
	}
	if c.Client != nil {
		c.backend = &remoteBackend{client: c.Client}
		return c.backend, nil
	}
	b, err := newLocalBackend(c.Config, c.PatternFile, c.Logger)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

// NewRootCmd creates the root command with its global flags and subcommands.
func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "serialctl",
		Short: "Recognise and generate product serial numbers",
		Long: `serialctl extracts serial numbers and range expressions such as
"SN-1000 to SN-1005" from free text, OCR output and barcode values, and
generates bulk serial ranges from prefix/suffix patterns.

Without --server the engine runs in-process and patterns come from the YAML
file given by --patterns. With --server every command goes to the API.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./config.yaml, ~/.serial/config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputTable, "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server URL; empty runs the engine locally (env "+EnvServer+")")
	pf.StringVar(&opts.APIKey, "api-key", "", "API key sent as a bearer token (env "+EnvAPIKey+")")
	pf.StringVarP(&opts.PatternFile, "patterns", "p", "", "YAML pattern file for local mode (env "+EnvPatternFile+")")

	cmd.AddCommand(
		newExtractCmd(),
		newGenerateCmd(),
		newPatternsCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun loads .env, config and logger, then stores the CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	_ = godotenv.Load()
	applyEnvFallbacks(opts)

	switch strings.ToLower(opts.OutputFormat) {
	case OutputText, OutputJSON, OutputTable:
	default:
		return errors.Validation(fmt.Sprintf("unknown output format %q", opts.OutputFormat))
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := initLogger(opts)

	apiClient, err := initClient(opts, logger)
	if err != nil {
		return fmt.Errorf("client initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Client:       apiClient,
		PatternFile:  opts.PatternFile,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor || color.NoColor,
		Timeout:      opts.Timeout,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

func applyEnvFallbacks(opts *RootOptions) {
	if opts.ServerAddr == "" {
		opts.ServerAddr = os.Getenv(EnvServer)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(EnvAPIKey)
	}
	if opts.PatternFile == "" {
		opts.PatternFile = os.Getenv(EnvPatternFile)
	}
}

// initConfig loads an explicit --config file, else the first config.yaml in
// the search paths, else defaults and SERIAL_* variables.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.LoadFromFile(opts.ConfigPath)
	}

	searchPaths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".serial"))
	}
	searchPaths = append(searchPaths, "/etc/serial")

	cfg, err := config.Load(config.WithSearchPaths(searchPaths...))
	if stderrors.Is(err, config.ErrConfigFileNotFound) {
		return config.Load()
	}
	return cfg, err
}

// initLogger writes to stderr so stdout stays clean for command output.
func initLogger(opts *RootOptions) logging.Logger {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewCLILogger(level)
}

// initClient returns nil in local mode.
func initClient(opts *RootOptions, logger logging.Logger) (*client.Client, error) {
	if opts.ServerAddr == "" {
		return nil, nil
	}
	return client.NewClient(opts.ServerAddr, opts.APIKey,
		client.WithTimeout(opts.Timeout),
		client.WithLogger(clientLogger{logger.Named("client")}),
		client.WithUserAgent("serialctl/"+Version),
	)
}

// clientLogger adapts logging.Logger to the SDK's printf-style Logger.
type clientLogger struct{ l logging.Logger }

func (c clientLogger) Debugf(format string, args ...interface{}) { c.l.Debug(fmt.Sprintf(format, args...)) }
func (c clientLogger) Infof(format string, args ...interface{})  { c.l.Info(fmt.Sprintf(format, args...)) }
func (c clientLogger) Errorf(format string, args ...interface{}) { c.l.Error(fmt.Sprintf(format, args...)) }

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Validation("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Validation("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext derives the per-command context bounded by --timeout.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		return context.WithTimeout(ctx, cliCtx.Timeout)
	}
	return context.WithCancel(ctx)
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

type textProvider interface {
	Text() string
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch cliCtx.OutputFormat {
	case OutputJSON:
		return printJSON(cmd, data)
	case OutputTable:
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case textProvider:
		fmt.Fprint(cmd.OutOrStdout(), v.Text())
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

// printNotes writes warnings to stderr, one per line.
func printNotes(cmd *cobra.Command, label string, notes []string) {
	for _, n := range notes {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString(label+":"), n)
	}
}

// FormatTable renders headers and rows as a borderless aligned table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return buf.String()
}

//Personal.AI order the ending
