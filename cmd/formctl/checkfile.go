package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/upload"
)

func checkFileCmd(a *app) *cobra.Command {
	var (
		mode     string
		maxBytes int64
		allowed  []string
	)

	cmd := &cobra.Command{
		Use:   "check-file <path>...",
		Short: "Screen files against attachment rules before uploading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := i18n.New(i18n.WithDefaultLocale(a.cfg.Locale))
			if err != nil {
				return err
			}
			rules := upload.RulesFor(upload.Mode(mode), maxBytes, allowed...)

			rejected := 0
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("stat %s: %w", path, err)
				}
				err = rules.Validate(upload.NewFile(info.Name(), info.Size()))
				if err == nil {
					fmt.Fprintf(a.stdout, "ok\t%s (%s)\n", path, upload.FormatMB(info.Size()))
					continue
				}
				rejected++
				fmt.Fprintf(a.stdout, "rejected\t%s\t%s\n", path, rejection(catalog, a.cfg.Locale, err, rules))
				a.logger.Info("file rejected", "path", path, "error", err)
			}
			if rejected > 0 {
				return fmt.Errorf("%d of %d files rejected", rejected, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(upload.ModeImage), "default allow-list (image or document)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", upload.DefaultMaxBytes, "size limit in bytes")
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "allowed extensions, overriding --mode")
	return cmd
}

func rejection(catalog *i18n.Catalog, locale string, err error, rules upload.Rules) string {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return catalog.Message(locale, i18n.MsgFileTooLarge, map[string]any{"Max": upload.FormatMB(rules.MaxBytes)})
	case errors.Is(err, upload.ErrExtensionNotAllowed):
		return catalog.Message(locale, i18n.MsgFileTypeNotAllowed, map[string]any{"Allowed": strings.Join(rules.Allowed, ", ")})
	default:
		return err.Error()
	}
}
