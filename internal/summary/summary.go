// Package summary reloads exported parcel tables and aggregates them per
// commune and village.
package summary

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/fetcher"
	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/reconcile"
	"github.com/sells-group/parcel-cli/internal/table"
)

// Parcels converts a reconciled table into typed parcels. Blank commune and
// village become "Unspecified". A surface area that does not parse is left
// nil rather than zero.
func Parcels(t *table.Table) []model.Parcel {
	out := make([]model.Parcel, 0, t.Len())
	for _, r := range t.Rows() {
		p := model.Parcel{
			ID:                    r.Get(model.ColID).String(),
			Commune:               textOr(r.Get(model.ColCommune)),
			Village:               textOr(r.Get(model.ColVillage)),
			HasValidationCode:     yesNo(r.Get(model.ColHasValidationCode)),
			UsageTypeIndividual:   textOr(r.Get(model.ColUsageTypeIndividual)),
			UsageTypeCollective:   textOr(r.Get(model.ColUsageTypeCollective)),
			IsDeliberated:         yesNo(r.Get(model.ColIsDeliberated)),
			DeliberatingAuthority: textOr(r.Get(model.ColDeliberatingAuthority)),
			Source:                r.Get(model.ColSource).String(),
			Category:              model.Category(r.Get(model.ColCategory).String()),
		}
		if n, ok := r.Get(model.ColSurfaceArea).Float(); ok {
			p.SurfaceArea = &n
		}
		if code := r.Get(model.ColValidationCode); code.Valid() && strings.TrimSpace(code.String()) != "" {
			s := code.String()
			p.ValidationCode = &s
		}
		out = append(out, p)
	}
	return out
}

func textOr(v table.Value) string {
	if s := strings.TrimSpace(v.String()); s != "" {
		return s
	}
	return model.Unspecified
}

func yesNo(v table.Value) bool {
	b, _ := reconcile.ParseYesNo(v.String())
	return b
}

// Load reads an exported table through l and converts it to parcels.
func Load(ctx context.Context, l fetcher.Loader, path string) ([]model.Parcel, error) {
	t, err := l.Load(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "summary: load %s", path)
	}
	if !t.Has(model.ColID) {
		return nil, eris.Errorf("summary: %s has no %q column", path, model.ColID)
	}
	parcels := Parcels(t)
	zap.L().Debug("parcels loaded",
		zap.String("component", "summary"),
		zap.String("path", path),
		zap.Int("parcels", len(parcels)),
	)
	return parcels, nil
}

// Group holds the aggregates of one commune, one village, or everything.
type Group struct {
	Commune     string  `json:"commune,omitempty"`
	Village     string  `json:"village,omitempty"`
	Parcels     int     `json:"parcels"`
	WithCode    int     `json:"with_validation_code"`
	Deliberated int     `json:"deliberated"`
	SurfaceArea float64 `json:"surface_area"`
	// KnownArea counts parcels that contributed to SurfaceArea.
	KnownArea int `json:"known_area"`
}

func (g *Group) add(p model.Parcel) {
	g.Parcels++
	if p.HasValidationCode {
		g.WithCode++
	}
	if p.IsDeliberated {
		g.Deliberated++
	}
	if p.SurfaceArea != nil {
		g.SurfaceArea += *p.SurfaceArea
		g.KnownArea++
	}
}

// Summary is the full aggregate view.
type Summary struct {
	Overall   Group   `json:"overall"`
	ByCommune []Group `json:"by_commune"`
	ByVillage []Group `json:"by_village"`
}

// Compute aggregates parcels overall, per commune and per commune and
// village. Groups are sorted by name.
func Compute(parcels []model.Parcel) Summary {
	communes := make(map[string]*Group)
	villages := make(map[[2]string]*Group)

	var s Summary
	for _, p := range parcels {
		s.Overall.add(p)

		c, ok := communes[p.Commune]
		if !ok {
			c = &Group{Commune: p.Commune}
			communes[p.Commune] = c
		}
		c.add(p)

		key := [2]string{p.Commune, p.Village}
		v, ok := villages[key]
		if !ok {
			v = &Group{Commune: p.Commune, Village: p.Village}
			villages[key] = v
		}
		v.add(p)
	}

	for _, c := range communes {
		s.ByCommune = append(s.ByCommune, *c)
	}
	for _, v := range villages {
		s.ByVillage = append(s.ByVillage, *v)
	}
	sort.Slice(s.ByCommune, func(i, j int) bool {
		return s.ByCommune[i].Commune < s.ByCommune[j].Commune
	})
	sort.Slice(s.ByVillage, func(i, j int) bool {
		a, b := s.ByVillage[i], s.ByVillage[j]
		if a.Commune != b.Commune {
			return a.Commune < b.Commune
		}
		return a.Village < b.Village
	})
	return s
}

// Format writes s as aligned text tables.
func Format(out io.Writer, s Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMUNE\tPARCELS\tWITH_CODE\tDELIBERATED\tSURFACE")
	_, _ = fmt.Fprintln(w, "-------\t-------\t---------\t-----------\t-------")
	for _, g := range s.ByCommune {
		writeRow(w, g.Commune, g)
	}
	writeRow(w, "TOTAL", s.Overall)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMUNE\tVILLAGE\tPARCELS\tWITH_CODE\tDELIBERATED\tSURFACE")
	_, _ = fmt.Fprintln(w, "-------\t-------\t-------\t---------\t-----------\t-------")
	for _, g := range s.ByVillage {
		_, _ = fmt.Fprintf(w, "%s\t", g.Commune)
		writeRow(w, g.Village, g)
	}
	_ = w.Flush()
}

func writeRow(w io.Writer, label string, g Group) {
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
		label, g.Parcels, g.WithCode, g.Deliberated, area(g))
}

func area(g Group) string {
	if g.KnownArea == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", g.SurfaceArea)
}
