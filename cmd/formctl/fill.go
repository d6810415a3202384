package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formctl/pkg/dom/htmldom"
	"github.com/goliatone/go-formctl/pkg/formctl"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/submission"
	"github.com/goliatone/go-formctl/pkg/tui"
)

const maxPageBytes = 8 << 20

func fillCmd(a *app) *cobra.Command {
	var (
		sets        []string
		skip        []string
		noInput     bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "fill <url>",
		Short: "Fetch a form page, fill it in, and submit it",
		Long: `Fetch the page at <url>, prompt for every visible field of the form, and
submit it. Conditional fields are prompted only once their controlling answer
reveals them. Attachments are screened before they are sent.

Use --set name=value to answer without prompting; repeat the flag for
checkbox groups. With --no-input every unanswered field keeps the page's value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.formConfig(cmd)
			if err != nil {
				return err
			}
			values, err := parseSets(sets)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			jar, err := cookiejar.New(nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: a.cfg.Timeout, Jar: jar}

			doc, err := fetchPage(ctx, client, args[0], a.cfg.UserAgent)
			if err != nil {
				return err
			}
			a.logger.Debug("page loaded", "url", doc.URL(), "form", cfg.FormID)

			catalog := i18n.MustNew()
			if !hasCatalogue(catalog, a.cfg.Locale) {
				a.logger.Warn("no messages for locale, using English", "locale", a.cfg.Locale, "available", catalog.Locales())
			}

			registry := prometheus.NewRegistry()
			sender := submission.NewClient(
				submission.WithHTTPClient(client),
				submission.WithLogger(a.logger),
				submission.WithUserAgent(a.cfg.UserAgent),
			)
			ctrl, err := formctl.New(doc, cfg,
				formctl.WithLogger(a.logger),
				formctl.WithCatalog(catalog),
				formctl.WithLocale(a.cfg.Locale),
				formctl.WithSender(sender),
				formctl.WithMetrics(registry),
			)
			if err != nil {
				return err
			}
			if err := ctrl.Init(ctx); err != nil {
				return err
			}

			var driver tui.PromptDriver = tui.NewSurveyDriver(a.stdout)
			if noInput {
				driver = tui.NewDefaultsDriver(a.stdout)
			}
			filler := tui.New(
				tui.WithPromptDriver(driver),
				tui.WithValues(values),
				tui.WithSkip(skip...),
				tui.WithLogger(a.logger),
				tui.WithCatalog(catalog, a.cfg.Locale),
			)
			result, err := filler.Run(ctx, doc, ctrl)
			if err != nil {
				return err
			}
			if showMetrics {
				if err := writeMetrics(a.stdout, registry); err != nil {
					return err
				}
			}
			if result.Kind() != submission.KindSuccess {
				return fmt.Errorf("submission ended with %s", result.Kind())
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "answer a field without prompting (name=value, repeatable)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "field names to leave untouched")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "never prompt; unanswered fields keep their current value")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print submission counters after the run")
	return cmd
}

// hasCatalogue reports whether locale, or its base language, has built-in
// messages.
func hasCatalogue(catalog *i18n.Catalog, locale string) bool {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	for _, available := range catalog.Locales() {
		if available == tag.String() || available == base.String() {
			return true
		}
	}
	return false
}

func parseSets(raw []string) (map[string][]string, error) {
	values := make(map[string][]string, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: want name=value", entry)
		}
		values[name] = append(values[name], value)
	}
	return values, nil
}

// fetchPage loads and parses the form page. Cookies set by the response,
// including the anti-forgery cookie, are exposed to the document.
func fetchPage(ctx context.Context, client *http.Client, url, userAgent string) (*htmldom.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch page: %s returned %s", url, resp.Status)
	}

	final := resp.Request.URL
	options := []htmldom.Option{htmldom.WithURL(final.String())}
	if client.Jar != nil {
		options = append(options, htmldom.WithCookies(client.Jar.Cookies(final)...))
	}
	doc, err := htmldom.Parse(io.LimitReader(resp.Body, maxPageBytes), options...)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// writeMetrics prints the registry in the Prometheus text exposition format.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}
