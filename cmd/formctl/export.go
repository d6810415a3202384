package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctl/pkg/formctl"
)

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the resolved form definition as YAML",
		Long: `Resolve the form from --forms/--form or --openapi/--operation and print it
as a definitions file. Piping the output into a definitions directory pins an
OpenAPI-derived form so it can be edited by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.formConfig(cmd)
			if err != nil {
				return err
			}
			name := a.cfg.Form
			if name == "" {
				name = a.cfg.Operation
			}
			if name == "" {
				name = cfg.FormID
			}

			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			doc := struct {
				Forms map[string]formctl.Config `yaml:"forms"`
			}{Forms: map[string]formctl.Config{name: cfg}}
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode definition: %w", err)
			}
			return enc.Close()
		},
	}
}
