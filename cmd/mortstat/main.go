// Command mortstat decodes fixed-width mortality files and runs grouped
// counts and filtered exports over them.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/field"
	"mortstat/internal/layout"
	"mortstat/internal/logging"
	"mortstat/internal/metrics"
	"mortstat/internal/metrics/prompush"
	"mortstat/internal/query"
	"mortstat/internal/report"

	// register all backends with the storage factory; export sinks pick one
	// by kind at run time.
	_ "mortstat/internal/storage/all"
)

// newLogger is a test seam.
var newLogger = logging.New

type app struct {
	verbose        bool
	metricsBackend string
	pushGatewayURL string

	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mortstat",
		Short:         "Decode fixed-width mortality records and aggregate them",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(a.verbose)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")
	root.PersistentFlags().StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway or none (default from METRICS_BACKEND)")
	root.PersistentFlags().StringVar(&a.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (default from PUSHGATEWAY_URL)")

	root.AddCommand(a.runCmd(), a.validateCmd(), a.fieldsCmd(), a.demoCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the queries and exports of a pipeline file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := a.reportIssues(cmd, cfgPath, config.ValidatePipeline(p)); err != nil {
				return err
			}
			pl, err := newPlan(p)
			if err != nil {
				return err
			}
			flush := a.setupMetrics(p.Job)
			defer flush()

			start := time.Now()
			err = execute(cmd.Context(), a.log, pl, cmd.OutOrStdout())
			a.log.Info("run finished", zap.String("job", p.Job), zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)), zap.Error(err))
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "configs/pipelines/mortality-2017.json", "pipeline config path (.json, .yaml)")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := a.reportIssues(cmd, cfgPath, config.ValidatePipeline(p)); err != nil {
				return err
			}
			if _, err := newPlan(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "configs/pipelines/mortality-2017.json", "pipeline config path (.json, .yaml)")
	return cmd
}

func (a *app) fieldsCmd() *cobra.Command {
	var layoutName string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the fields of a record layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := layout.ByName(layoutName)
			if err != nil {
				return err
			}
			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Field", "Start", "End", "Kind", "Codes"})
			for _, d := range l.Fields() {
				kind, codes := "", "-"
				switch d := d.(type) {
				case *field.Lookup:
					kind, codes = "lookup", fmt.Sprint(len(d.Entries()))
				case *field.Age:
					kind = "age"
				case *field.Diagnosis:
					kind = "icd-10"
				}
				tbl.AppendRow(table.Row{d.Name(), d.Range().Start, d.Range().End, kind, codes})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (record width %d)\n%s\n", l.Name, l.Width(), tbl.Render())
			return err
		},
	}
	cmd.Flags().StringVar(&layoutName, "layout", "", "layout name (default mortality-2017)")
	return cmd
}

func (a *app) demoCmd() *cobra.Command {
	var (
		out     string
		asTable bool
	)
	cmd := &cobra.Command{
		Use:   "demo <mortality file>",
		Short: "Run the standard analyses: manners of death at 5-9, electrocutions by age group, youth CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flush := a.setupMetrics("demo")
			defer flush()

			pl := builtinPlan(args[0], out)
			pl.format.Plain = !asTable
			return execute(cmd.Context(), a.log, pl, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "reduced.csv", "CSV path for the youth export")
	cmd.Flags().BoolVar(&asTable, "table", false, "render tables instead of plain lines")
	return cmd
}

// reportIssues prints every issue and fails when any is an error.
func (a *app) reportIssues(cmd *cobra.Command, path string, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", path)
	}
	return nil
}

// setupMetrics installs the configured backend and returns the function that
// flushes it. Backend and URL resolve flag, then env, then default.
func (a *app) setupMetrics(job string) func() {
	name := a.metricsBackend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	switch name {
	case "pushgateway":
		url := a.pushGatewayURL
		if url == "" {
			url = os.Getenv("PUSHGATEWAY_URL")
		}
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			a.log.Warn("metrics: failed to init pushgateway backend; using nop", zap.Error(err))
			return func() {}
		}
		a.log.Debug("metrics enabled", zap.String("backend", name), zap.String("url", url), zap.String("job", job))
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				a.log.Warn("metrics: flush error", zap.Error(err))
			}
			metrics.Reset()
		}
	case "", "none":
		return func() {}
	default:
		a.log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", name))
		return func() {}
	}
}

// builtinPlan runs the standard analyses over path with default settings.
func builtinPlan(path, csvPath string) *plan {
	l := layout.Mortality2017()
	qs, es := query.Builtins(l, csvPath)
	return &plan{
		job:     "demo",
		path:    path,
		layout:  l,
		policy:  aggregate.DefaultPolicy(),
		rt:      newRuntimeConfig(config.Pipeline{}),
		queries: qs,
		exports: es,
		format:  report.New(language.English),
	}
}
