// Package reconcile merges parcel survey records with validation and
// deliberation references: identifier normalization, column harmonization,
// validation matching, attribute completion and deliberation reconciliation.
package reconcile

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/table"
)

// Pair is a survey table and the validation reference it is checked against.
type Pair struct {
	Category   model.Category
	Survey     *table.Table
	Validation *table.Table
}

// Source is an independent input (e.g. "kobo"). Identifiers are only
// compared within a source.
type Source struct {
	Name  string
	Pairs []Pair
}

// Input holds every already-loaded table of a run.
type Input struct {
	Sources      []Source
	Deliberation []*table.Table
}

// SourceResult is the reconciled table of one source, or its fatal error.
type SourceResult struct {
	Name  string
	Table *table.Table
	Err   error
}

// Result is the output of a run.
type Result struct {
	Sources     []SourceResult
	Global      *table.Table
	Deliberated *table.Table
	Report      model.Report
}

// Options tunes pipeline behavior.
type Options struct {
	// StrictAttributes makes an unknown completion attribute fatal.
	StrictAttributes bool
	// MaxSamples caps the sample list of each warning (0 = unlimited).
	MaxSamples int
}

// Pipeline runs the reconciliation stages over in-memory tables.
type Pipeline struct {
	schema *Schema
	opts   Options
}

// New creates a Pipeline. A nil schema uses DefaultSchema.
func New(schema *Schema, opts Options) *Pipeline {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Pipeline{schema: schema, opts: opts}
}

// Run reconciles every source. Sources run concurrently and fail
// independently: a fatal error in one source is reported and returned
// (combined) while the others still produce output. Output order always
// follows input order.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	delib, delibWarnings := PrepareDeliberation(in.Deliberation, p.schema, "deliberation")
	log.Info("deliberation reference prepared",
		zap.Int("tables", len(in.Deliberation)),
		zap.Int("codes", delib.Len()),
	)

	type slot struct {
		table  *table.Table
		report model.SourceReport
		err    error
	}
	slots := make([]slot, len(in.Sources))

	var g errgroup.Group
	for i, src := range in.Sources {
		g.Go(func() error {
			t, rep, err := p.runSource(ctx, src, delib)
			slots[i] = slot{table: t, report: rep, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "reconcile: run cancelled")
	}

	res := &Result{}
	res.Report.Warnings = append(res.Report.Warnings, delibWarnings...)
	var errs error
	var ok []*table.Table
	for i, s := range slots {
		name := in.Sources[i].Name
		rep := s.report
		rep.Source = name
		if s.err != nil {
			rep.Error = s.err.Error()
			errs = multierr.Append(errs, eris.Wrapf(s.err, "source %s", name))
			log.Error("source failed", zap.String("source", name), zap.Error(s.err))
		} else {
			ok = append(ok, s.table)
			res.Report.CrossTab.Merge(rep.Deliberation.CrossTab)
		}
		res.Sources = append(res.Sources, SourceResult{Name: name, Table: s.table, Err: s.err})
		res.Report.Warnings = append(res.Report.Warnings, rep.Warnings...)
		res.Report.Sources = append(res.Report.Sources, rep)
	}

	res.Global = table.Concat("global", ok...).Select(model.FinalColumns...)
	res.Global.Name = "global"
	res.Deliberated = res.Global.Filter(func(r table.Row) bool {
		return r.Get(model.ColIsDeliberated).Bool()
	})
	res.Deliberated.Name = "deliberated"
	res.Report.Records = res.Global.Len()
	res.Report.Deliberated = res.Deliberated.Len()

	if p.opts.MaxSamples > 0 {
		trimSamples(res.Report.Warnings, p.opts.MaxSamples)
		for i := range res.Report.Sources {
			trimSamples(res.Report.Sources[i].Warnings, p.opts.MaxSamples)
		}
	}

	for _, w := range res.Report.Warnings {
		zap.L().Warn(w.Message, zap.String("kind", string(w.Kind)), zap.String("source", w.Source), zap.String("stage", w.Stage))
	}
	log.Info("run complete",
		zap.Int("records", res.Report.Records),
		zap.Int("deliberated", res.Report.Deliberated),
		zap.Int("warnings", len(res.Report.Warnings)),
	)
	return res, errs
}

func trimSamples(ws []model.Warning, n int) {
	for i := range ws {
		if len(ws[i].Samples) > n {
			ws[i].Samples = ws[i].Samples[:n]
		}
	}
}

var categoryRank = map[model.Category]int{
	model.CategoryIndividual: 0,
	model.CategoryCollective: 1,
}

func (p *Pipeline) runSource(ctx context.Context, src Source, delib *table.Table) (*table.Table, model.SourceReport, error) {
	rep := model.SourceReport{Source: src.Name}

	pairs := append([]Pair(nil), src.Pairs...)
	sort.SliceStable(pairs, func(i, j int) bool {
		return categoryRank[pairs[i].Category] < categoryRank[pairs[j].Category]
	})

	type slot struct {
		table *table.Table
		rep   model.SourceReport
	}
	slots := make([]slot, len(pairs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "reconcile: cancelled")
			}
			t, pr, err := p.runPair(src.Name, pair)
			if err != nil {
				return err
			}
			slots[i] = slot{table: t, rep: pr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, rep, err
	}

	var parts []*table.Table
	for _, s := range slots {
		parts = append(parts, s.table)
		rep.Stages = append(rep.Stages, s.rep.Stages...)
		rep.Matches = append(rep.Matches, s.rep.Matches...)
		rep.Completion = append(rep.Completion, s.rep.Completion...)
		rep.Warnings = append(rep.Warnings, s.rep.Warnings...)
	}
	merged := table.Concat(src.Name, parts...)

	out, stats, warnings := Deliberate(merged, delib, src.Name)
	rep.Deliberation = stats
	rep.Warnings = append(rep.Warnings, warnings...)
	rep.Stages = append(rep.Stages, model.StageCount{Stage: "deliberation", In: merged.Len(), Out: out.Len()})

	final := out.Select(model.SourceColumns...)
	final.Name = src.Name
	return final, rep, nil
}

func (p *Pipeline) runPair(source string, pair Pair) (*table.Table, model.SourceReport, error) {
	var rep model.SourceReport
	cat := pair.Category
	if pair.Survey == nil {
		return nil, rep, eris.Errorf("reconcile: source %s (%s): survey table is missing", source, cat)
	}
	validation := pair.Validation
	if validation == nil {
		validation = table.New("validation", []string{model.ColID})
	}
	stage := func(name string, in, out int) {
		rep.Stages = append(rep.Stages, model.StageCount{Stage: name, Category: cat, In: in, Out: out})
	}

	survey, w := Harmonize(pair.Survey, source, p.schema)
	rep.Warnings = append(rep.Warnings, w...)
	ref, w := Harmonize(validation, source, p.schema)
	rep.Warnings = append(rep.Warnings, w...)
	stage("harmonize", pair.Survey.Len(), survey.Len())

	n := survey.Len()
	survey, w, err := AssignIDs(survey, source, p.schema.ID)
	if err != nil {
		return nil, rep, err
	}
	rep.Warnings = append(rep.Warnings, w...)
	ref, w, err = AssignIDs(ref, source, p.schema.ID)
	if err != nil {
		return nil, rep, err
	}
	rep.Warnings = append(rep.Warnings, w...)
	stage("identifier", n, survey.Len())

	matched, ms, w := MatchValidation(survey, ref, source, cat)
	rep.Matches = append(rep.Matches, ms)
	rep.Warnings = append(rep.Warnings, w...)
	stage("validation", survey.Len(), matched.Len())

	cs := p.schema.Category(cat)
	completed, as, w, err := CompleteAttributes(matched, ref, cs.Attributes, CompletionOptions{
		ReferenceNames: cs.ReferenceNames,
		Strict:         p.opts.StrictAttributes,
		Numeric:        p.schema.Numeric,
	}, source, cat)
	if err != nil {
		return nil, rep, err
	}
	rep.Completion = append(rep.Completion, as...)
	rep.Warnings = append(rep.Warnings, w...)
	stage("completion", matched.Len(), completed.Len())

	completed.SetColumn(cat.OtherUsageColumn(), fill(completed.Len(), table.Str(model.NotApplicable)))
	for _, col := range []string{model.ColCommune, model.ColVillage, cat.UsageColumn()} {
		vals := completed.Column(col)
		for i, v := range vals {
			vals[i] = v.Or(table.Str(model.Unspecified))
		}
		completed.SetColumn(col, vals)
	}
	completed.SetColumn(model.ColSource, fill(completed.Len(), table.Str(source)))
	completed.SetColumn(model.ColCategory, fill(completed.Len(), table.Str(string(cat))))
	return completed, rep, nil
}

func fill(n int, v table.Value) []table.Value {
	out := make([]table.Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}
