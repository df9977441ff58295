package align

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

const (
	// DefaultRetryBudget bounds the number of reference comparisons per file
	DefaultRetryBudget = 5
	// DefaultTokenTolerance is the number of token mismatches below which
	// an undifferentiated name literal is credited as a whole-name match
	DefaultTokenTolerance = 3
)

// Comparator decides whether two extracted values agree
type Comparator interface {
	Equal(gold, out tei.Value, kind, parser string) bool
}

type Config struct {
	RetryBudget    int `mapstructure:"retry_budget" yaml:"retry_budget"`
	TokenTolerance int `mapstructure:"token_tolerance" yaml:"token_tolerance"`
}

func DefaultConfig() Config {
	return Config{RetryBudget: DefaultRetryBudget, TokenTolerance: DefaultTokenTolerance}
}

// Aligner pairs the references of a gold-standard file with those of a
// parser output and scores matched pairs
type Aligner struct {
	types      *TypeTable
	exceptions *ExceptionTable
	profiles   Profiles
	comparator Comparator
	cfg        Config
	logger     *slog.Logger
}

type Option func(*Aligner)

func WithLogger(l *slog.Logger) Option {
	return func(a *Aligner) {
		a.logger = l
	}
}

func WithProfiles(p Profiles) Option {
	return func(a *Aligner) {
		a.profiles = p
	}
}

func WithConfig(cfg Config) Option {
	return func(a *Aligner) {
		a.cfg = cfg
	}
}

func New(types *TypeTable, exceptions *ExceptionTable, comparator Comparator, opts ...Option) *Aligner {
	a := &Aligner{
		types:      types,
		exceptions: exceptions,
		profiles:   NewProfiles(DefaultProfiles()),
		comparator: comparator,
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the outcome of aligning one file
type Result struct {
	Counts metrics.Counts
	// Skipped is set when the output held no references; only the gold
	// count contributes to the totals.
	Skipped bool
}

// AlignFile walks the gold and output references of one file. A gold
// reference that does not match the current output reference is passed
// over; when the gold list runs out the output cursor moves on and the
// gold cursor rewinds to just after the last match. Every comparison
// spends one unit of the retry budget.
func (a *Aligner) AlignFile(gold, out *tei.Document, parser string) (Result, error) {
	goldRefs, err := gold.References()
	if err != nil {
		return Result{}, err
	}
	gsTotal, err := gold.Count()
	if err != nil {
		return Result{}, err
	}

	res := Result{Counts: metrics.Counts{RefGS: gsTotal}}

	outRefs, err := out.References()
	if err != nil && !errors.Is(err, tei.ErrNoReferenceList) {
		return Result{}, err
	}
	if len(outRefs) == 0 {
		a.logger.Warn("output holds no references, skipping file", "parser", parser, "file", out.Path, "gold_references", gsTotal)
		res.Skipped = true
		return res, nil
	}
	res.Counts.RefOut, err = out.Count()
	if err != nil {
		return Result{}, err
	}

	profile := a.profiles.For(parser)
	gi, oi := 0, 0
	lastMatched := -1
	for budget := a.cfg.RetryBudget; budget > 0 && gi < len(goldRefs) && oi < len(outRefs); budget-- {
		g, o := goldRefs[gi], outRefs[oi]
		cmp, err := a.compareReferences(g, o, parser, profile)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", gold.Path, err)
		}

		if cmp.matched {
			a.score(&res.Counts, g, o, cmp, parser, profile)
			lastMatched = gi
			gi++
			oi++
			continue
		}

		gi++
		if gi == len(goldRefs) {
			oi++
			gi = lastMatched + 1
		}
	}

	return res, nil
}

type comparison struct {
	matched  bool
	compared tei.NameSet
	unmatch  []tei.Name
}

// compareReferences decides whether an output reference is the same work
// as a gold reference: at least one required field must be present in the
// output and every present field must agree.
func (a *Aligner) compareReferences(g, o *etree.Element, parser string, profile Profile) (comparison, error) {
	typ := tei.Type(g)
	required, err := a.types.Required(typ)
	if err != nil {
		return comparison{}, fmt.Errorf("reference %s: %w", tei.ID(g), err)
	}
	required = a.exceptions.Filter(parser, required)

	goldSel, _ := tei.SelectGold(g, required)
	if len(goldSel) == 0 {
		a.logger.Warn("nothing to compare", "parser", parser, "reference", tei.ID(g), "type", typ, "fields", joinNames(required))
		return comparison{}, nil
	}

	fields := make([]tei.Name, 0, len(goldSel))
	for _, s := range goldSel {
		fields = append(fields, s.Field)
	}
	outSel := tei.SelectFields(o, fields, tei.SelectOptions{Namespaced: profile.Namespaced, PointerRefs: profile.PointerRefs})

	outByField := make(map[tei.Name][]tei.Value, len(outSel))
	for _, s := range outSel {
		outByField[s.Field] = s.Values
	}

	cmp := comparison{compared: tei.NewNameSet()}
	for _, gs := range goldSel {
		values, ok := outByField[gs.Field]
		if !ok {
			continue
		}
		cmp.compared.Add(gs.Field)
		if !a.anyEqual(gs.Values, values, gs.Field.String(), parser) {
			cmp.unmatch = append(cmp.unmatch, gs.Field)
		}
	}
	cmp.matched = len(cmp.compared) > 0 && len(cmp.unmatch) == 0

	a.logger.Debug("compared references",
		"parser", parser,
		"gold", tei.ID(g),
		"output", tei.ID(o),
		"fields", len(cmp.compared),
		"unmatched", joinNames(cmp.unmatch),
		"matched", cmp.matched,
	)
	return cmp, nil
}

func (a *Aligner) anyEqual(gold, out []tei.Value, kind, parser string) bool {
	for _, g := range gold {
		for _, o := range out {
			if a.comparator.Equal(g, o, kind, parser) {
				return true
			}
		}
	}
	return false
}

// score adds the reference, metadata and content credit of a matched pair
func (a *Aligner) score(c *metrics.Counts, g, o *etree.Element, cmp comparison, parser string, profile Profile) {
	c.RefCorrect++

	goldCount := tei.CountMetadata(tei.PresentSections(g), g, tei.CountOptions{})

	restrict := tei.NewNameSet()
	for _, e := range goldCount.Entries {
		restrict.Add(e.Name)
		for _, p := range e.Value.Parts {
			restrict.Add(tei.Name{Kind: partKind(p)})
		}
	}
	outCount := tei.CountMetadata(tei.PresentSections(o), o, tei.CountOptions{
		Restrict:       restrict,
		MaxAuthorParts: goldCount.NameParts(),
		CapAuthorParts: true,
		PointerRefs:    profile.PointerRefs,
	})

	limit := min(goldCount.Fields, outCount.Fields)

	c.MetaGS += goldCount.Fields
	c.MetaOut += outCount.Fields
	c.MetaCorrect += min(limit, metadataCredit(goldCount.Entries, outCount.Entries))

	text := len(cmp.compared) - len(cmp.unmatch) + a.textCredit(cmp.compared, goldCount.Entries, outCount.Entries, parser)
	c.TextGS += goldCount.Fields
	c.TextOut += outCount.Fields
	c.TextCorrect += min(limit, text)
}

// metadataCredit credits every field family present on both sides, up to
// the smaller of the two occurrence counts
func metadataCredit(gold, out []tei.Entry) int {
	gc := familyCounts(gold)
	oc := familyCounts(out)
	credit := 0
	for name, n := range gc {
		if m, ok := oc[name]; ok {
			credit += min(n, m)
		}
	}
	return credit
}

func familyCounts(entries []tei.Entry) map[tei.Name]int {
	counts := make(map[tei.Name]int)
	for _, e := range entries {
		if e.Value.Kind == tei.NameValue {
			counts[e.Name.Family()] += len(e.Value.Parts)
			continue
		}
		counts[e.Name.Family()]++
	}
	return counts
}

// textCredit credits output entries whose value agrees with a not yet
// credited gold entry. Fields already settled while matching the pair are
// left out.
func (a *Aligner) textCredit(resolved tei.NameSet, gold, out []tei.Entry, parser string) int {
	used := make([]bool, len(gold))
	credit := 0
	for _, o := range out {
		if resolved.Has(o.Name) {
			continue
		}
		for i, g := range gold {
			if used[i] || resolved.Has(g.Name) {
				continue
			}
			if n, ok := a.entryCredit(g, o, parser); ok {
				credit += n
				used[i] = true
				break
			}
		}
	}
	return credit
}

func (a *Aligner) entryCredit(g, o tei.Entry, parser string) (int, bool) {
	gName, oName := g.Value.Kind == tei.NameValue, o.Value.Kind == tei.NameValue
	switch {
	case gName && oName:
		return a.nameCredit(g.Value, o.Value, parser)
	case gName != oName:
		return 0, false
	}
	if g.Name != o.Name {
		return 0, false
	}
	if a.comparator.Equal(g.Value, o.Value, g.Name.String(), parser) {
		return 1, true
	}
	return 0, false
}

// nameCredit compares two personal names. Decomposed names are paired part
// by part and credited per part when every pair agrees. A literal name is
// split into tokens, each checked against the parts of the other name; it
// earns one whole-name credit when fewer than the tolerated number of
// tokens find no part.
func (a *Aligner) nameCredit(g, o tei.Value, parser string) (int, bool) {
	switch {
	case g.Literal() && o.Literal():
		if a.comparator.Equal(tei.Scalar(literalText(g)), tei.Scalar(literalText(o)), tei.KindPersName, parser) {
			return 1, true
		}
		return 0, false
	case o.Literal():
		return a.tokenCredit(literalText(o), g.Parts, parser)
	case g.Literal():
		return a.tokenCredit(literalText(g), o.Parts, parser)
	}

	found, missed := 0, 0
	for _, op := range o.Parts {
		for _, gp := range g.Parts {
			if gp.Kind != op.Kind {
				continue
			}
			if a.comparator.Equal(tei.Scalar(gp.Text), tei.Scalar(op.Text), gp.Kind, parser) {
				found++
			} else {
				missed++
			}
		}
	}
	if found > 0 && missed == 0 {
		return found, true
	}
	return 0, false
}

func (a *Aligner) tokenCredit(literal string, parts []tei.NamePart, parser string) (int, bool) {
	found, missed := 0, 0
	for _, tok := range strings.Fields(literal) {
		hit := false
		for _, p := range parts {
			if a.comparator.Equal(tei.Scalar(p.Text), tei.Scalar(tok), partKind(p), parser) {
				hit = true
				break
			}
		}
		if hit {
			found++
		} else {
			missed++
		}
	}
	if found > 0 && missed < a.cfg.TokenTolerance {
		return 1, true
	}
	return 0, false
}

// literalText joins the undifferentiated parts of a name
func literalText(v tei.Value) string {
	var texts []string
	for _, p := range v.Parts {
		if p.Kind == "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

func partKind(p tei.NamePart) string {
	if p.Kind == "" {
		return tei.KindPersName
	}
	return p.Kind
}

func joinNames(names []tei.Name) string {
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = n.String()
	}
	return strings.Join(s, ",")
}
