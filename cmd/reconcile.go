package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parcel-cli/internal/config"
	"github.com/sells-group/parcel-cli/internal/fetcher"
	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/reconcile"
	"github.com/sells-group/parcel-cli/internal/report"
	"github.com/sells-group/parcel-cli/internal/summary"
	"github.com/sells-group/parcel-cli/internal/table"
)

// exportKinds types the exported spreadsheet columns.
var exportKinds = fetcher.ColumnKinds{
	Numeric: []string{model.ColSurfaceArea},
	Bool:    []string{model.ColHasValidationCode, model.ColIsDeliberated},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile survey sources with validation and deliberation references",
	Long:  "Loads every configured source, runs the reconciliation pipeline, exports per-source, global and deliberated tables plus the audit report, and archives the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if v, _ := cmd.Flags().GetString("out"); v != "" {
			cfg.Export.Dir = v
		}
		if v, _ := cmd.Flags().GetString("schema"); v != "" {
			cfg.Schema = v
		}
		if v, _ := cmd.Flags().GetBool("strict"); v {
			cfg.Pipeline.StrictAttributes = true
		}
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}
		return runReconcile(cmd.Context(), cfg, os.Stdout)
	},
}

func init() {
	reconcileCmd.Flags().String("out", "", "output directory (overrides export.dir)")
	reconcileCmd.Flags().String("schema", "", "column schema YAML (overrides schema)")
	reconcileCmd.Flags().Bool("strict", false, "fail a source when a completion attribute is unknown")
	rootCmd.AddCommand(reconcileCmd)
}

// newLoader builds the cached file loader used for every input file of a run.
func newLoader(c *config.Config) fetcher.Loader {
	l := fetcher.FileLoader{
		XLSX: fetcher.XLSXOptions{SheetName: c.Input.SheetName, SkipRows: c.Input.SkipRows},
		CSV:  fetcher.CSVOptions{TrimSpace: true},
	}
	if r := []rune(c.Input.CSVDelimiter); len(r) == 1 {
		l.CSV.Delimiter = r[0]
	}
	return fetcher.NewCachingLoader(l)
}

// runReconcile executes one full run. Sources that fail are reported and
// archived with the run; the combined source error is returned after every
// output has been written.
func runReconcile(ctx context.Context, c *config.Config, out io.Writer) error {
	log := zap.L().With(zap.String("component", "reconcile"))

	schema := reconcile.DefaultSchema()
	if c.Schema != "" {
		s, err := reconcile.LoadSchema(c.Schema)
		if err != nil {
			return err
		}
		schema = s
	}

	in, err := loadInput(ctx, newLoader(c), c)
	if err != nil {
		return err
	}

	p := reconcile.New(schema, reconcile.Options{
		StrictAttributes: c.Pipeline.StrictAttributes,
		MaxSamples:       c.Pipeline.MaxWarningSamples,
	})
	res, runErr := p.Run(ctx, in)
	if res == nil {
		return eris.Wrap(runErr, "reconcile")
	}

	if err := exportResult(c.Export, res); err != nil {
		return err
	}

	runID, err := archiveRun(ctx, res)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "records: %d, deliberated: %d, warnings: %d\n",
		res.Report.Records, res.Report.Deliberated, len(res.Report.Warnings))
	if runID != "" {
		_, _ = fmt.Fprintf(out, "run: %s\n", runID)
	}
	if n := len(res.Report.SuspiciousWarnings()); n > 0 {
		_, _ = fmt.Fprintf(out, "%d warning(s) need review, see %s.md\n", n,
			filepath.Join(c.Export.Dir, c.Export.Report))
	}

	log.Info("reconcile complete",
		zap.String("run_id", runID),
		zap.Int("records", res.Report.Records),
		zap.String("out", c.Export.Dir),
	)
	if runErr != nil {
		return eris.Wrap(runErr, "reconcile")
	}
	return nil
}

// loadInput loads every configured file concurrently. A file that cannot be
// read aborts the run before any stage executes.
func loadInput(ctx context.Context, l fetcher.Loader, c *config.Config) (reconcile.Input, error) {
	in := reconcile.Input{
		Sources:      make([]reconcile.Source, len(c.Sources)),
		Deliberation: make([]*table.Table, len(c.Deliberation)),
	}

	g, gCtx := errgroup.WithContext(ctx)
	for i, sc := range c.Sources {
		in.Sources[i] = reconcile.Source{Name: sc.Name, Pairs: make([]reconcile.Pair, len(sc.Pairs))}
		for j, pc := range sc.Pairs {
			in.Sources[i].Pairs[j].Category = model.Category(pc.Category)
			g.Go(func() error {
				t, err := l.Load(gCtx, pc.Survey)
				if err != nil {
					return eris.Wrapf(err, "source %s: load survey", sc.Name)
				}
				in.Sources[i].Pairs[j].Survey = t
				return nil
			})
			g.Go(func() error {
				t, err := l.Load(gCtx, pc.Validation)
				if err != nil {
					return eris.Wrapf(err, "source %s: load validation", sc.Name)
				}
				in.Sources[i].Pairs[j].Validation = t
				return nil
			})
		}
	}
	for i, path := range c.Deliberation {
		g.Go(func() error {
			t, err := l.Load(gCtx, path)
			if err != nil {
				return eris.Wrap(err, "load deliberation")
			}
			in.Deliberation[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reconcile.Input{}, err
	}
	return in, nil
}

// exportResult writes the reconciled tables and the report into e.Dir.
func exportResult(e config.ExportConfig, res *reconcile.Result) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", e.Dir)
	}

	write := func(name string, t *table.Table) error {
		path := filepath.Join(e.Dir, name)
		if err := fetcher.WriteXLSX(path, exportKinds, t); err != nil {
			return err
		}
		if e.CSV {
			if err := fetcher.WriteCSVFile(strings.TrimSuffix(path, filepath.Ext(path))+".csv", t); err != nil {
				return err
			}
		}
		return nil
	}

	for _, s := range res.Sources {
		if s.Err != nil || s.Table == nil {
			continue
		}
		if err := write(s.Name+".xlsx", s.Table); err != nil {
			return eris.Wrapf(err, "export: source %s", s.Name)
		}
	}
	if err := write(e.Global, res.Global); err != nil {
		return eris.Wrap(err, "export: global")
	}
	if err := write(e.Deliberated, res.Deliberated); err != nil {
		return eris.Wrap(err, "export: deliberated")
	}
	return report.Save(filepath.Join(e.Dir, e.Report), &res.Report)
}

// archiveRun stores the report and the published parcels. It returns the
// run ID, or "" when the archive is disabled.
func archiveRun(ctx context.Context, res *reconcile.Result) (string, error) {
	st, err := initStore(ctx)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", nil
	}
	defer st.Close() //nolint:errcheck

	run := &model.Run{Report: &res.Report}
	var published []*table.Table
	for _, s := range res.Sources {
		run.Sources = append(run.Sources, s.Name)
		if s.Err == nil && s.Table != nil {
			published = append(published, s.Table)
		}
	}
	if err := st.SaveRun(ctx, run); err != nil {
		return "", eris.Wrap(err, "archive run")
	}

	n, err := st.SavePublishedParcels(ctx, run.ID, summary.Parcels(table.Concat("published", published...)))
	if err != nil {
		return "", eris.Wrap(err, "archive parcels")
	}
	zap.L().Info("run archived",
		zap.String("component", "reconcile"),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int64("parcels", n),
	)
	return run.ID, nil
}
