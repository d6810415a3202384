package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/formspec"
)

const envPrefix = "FORMCTL"

// settings is the CLI configuration resolved from flags, FORMCTL_* variables,
// and the optional config file, in that order of precedence.
type settings struct {
	Forms     string        `mapstructure:"forms"`
	Form      string        `mapstructure:"form"`
	OpenAPI   string        `mapstructure:"openapi"`
	Operation string        `mapstructure:"operation"`
	Locale    string        `mapstructure:"locale"`
	LogLevel  string        `mapstructure:"log-level"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	cfg    settings
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	var cfgFile string

	root := &cobra.Command{
		Use:   "formctl",
		Short: "Fill and submit registration forms from the terminal",
		Long: `formctl loads a server-rendered registration form, applies its
conditional fields and attachment checks, and submits it to the backend the
way the page's own script would.

Form behaviour comes from a definitions directory (--forms/--form) or from an
OpenAPI operation (--openapi/--operation).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cfgFile)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ./formctl.yaml if present)")
	flags.String("forms", "", "directory of form definition files")
	flags.String("form", "", "form name inside the definitions directory")
	flags.String("openapi", "", "OpenAPI document describing the form endpoint")
	flags.String("operation", "", "operationId of the form endpoint")
	flags.String("locale", "en", "locale for banner and field messages")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Duration("timeout", 30*time.Second, "HTTP timeout")
	flags.String("user-agent", "formctl/"+version, "User-Agent header")
	for _, name := range []string{"forms", "form", "openapi", "operation", "locale", "log-level", "timeout", "user-agent"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		fillCmd(a),
		exportCmd(a),
		checkFileCmd(a),
	)
	return root
}

func (a *app) load(cfgFile string) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("formctl")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.cfg.LogLevel)); err != nil {
		return fmt.Errorf("log level %q: %w", a.cfg.LogLevel, err)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// formConfig resolves the controller configuration from the definitions
// directory or the OpenAPI document.
func (a *app) formConfig(cmd *cobra.Command) (formctl.Config, error) {
	switch {
	case a.cfg.OpenAPI != "":
		if a.cfg.Operation == "" {
			return formctl.Config{}, errors.New("--operation is required with --openapi")
		}
		raw, err := os.ReadFile(a.cfg.OpenAPI)
		if err != nil {
			return formctl.Config{}, fmt.Errorf("read openapi document: %w", err)
		}
		return formspec.FromOpenAPI(cmd.Context(), raw, a.cfg.Operation)
	case a.cfg.Forms != "":
		store, err := formspec.Load(os.DirFS(a.cfg.Forms))
		if err != nil {
			return formctl.Config{}, err
		}
		name := a.cfg.Form
		if name == "" {
			names := store.Names()
			if len(names) != 1 {
				return formctl.Config{}, fmt.Errorf("--form is required when %s defines %d forms", a.cfg.Forms, len(names))
			}
			name = names[0]
		}
		cfg, ok := store.Form(name)
		if !ok {
			return formctl.Config{}, fmt.Errorf("form %q not defined in %s (have %s)", name, a.cfg.Forms, strings.Join(store.Names(), ", "))
		}
		return cfg, nil
	default:
		return formctl.Config{}, errors.New("either --forms or --openapi is required")
	}
}
