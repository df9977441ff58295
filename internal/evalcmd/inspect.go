package evalcmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/lo"

	"github.com/lehigh-university-libraries/refeval/internal/config"
	"github.com/lehigh-university-libraries/refeval/internal/eval/align"
	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

// executeInspect prints, for each reference of one TEI file, the required
// fields, the values the selector finds for them and the metadata the
// counter enumerates. With a parser set the file is read as that parser's
// output; otherwise as a gold standard.
func executeInspect(path, parser string, limit int, cfg *config.Config, w io.Writer) error {
	tables, err := cfg.Tables()
	if err != nil {
		return err
	}

	doc, err := tei.ReadFile(path)
	if err != nil {
		return err
	}
	refs, err := doc.References()
	if err != nil {
		return err
	}
	count, err := doc.Count()
	if err != nil {
		return err
	}

	profile := tables.Profiles.For(parser)
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprintf(w, "References: %d (count %d)\n", len(refs), count)
	if parser != "" {
		fmt.Fprintf(w, "Parser: %s (namespaced=%t, pointer_refs=%t)\n", parser, profile.Namespaced, profile.PointerRefs)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))

	for i, ref := range refs {
		if limit > 0 && i >= limit {
			break
		}

		typ := tei.Type(ref)
		fmt.Fprintf(w, "\nREFERENCE %d/%d  id=%s type=%s\n", i+1, len(refs), tei.ID(ref), typ)
		fmt.Fprintln(w, strings.Repeat("-", 80))

		required, err := tables.Types.Required(typ)
		switch {
		case errors.Is(err, align.ErrUnknownType):
			fmt.Fprintf(w, "Required fields: unknown type %q (known: %s)\n", typ, strings.Join(tables.Types.Types(), ", "))
		case err != nil:
			return err
		default:
			required = tables.Exceptions.Filter(parser, required)
			fmt.Fprintf(w, "Required fields: %s\n", joinFields(required))
			printSelections(w, ref, required, parser, profile)
		}

		mc := tei.CountMetadata(tei.PresentSections(ref), ref, tei.CountOptions{PointerRefs: profile.PointerRefs})
		fmt.Fprintf(w, "Metadata: %d fields, %d name parts\n", mc.Fields, mc.AuthorParts)
		for _, e := range mc.Entries {
			fmt.Fprintf(w, "  %-28s %s\n", e.Name, e.Value)
		}
	}

	return nil
}

func printSelections(w io.Writer, ref *etree.Element, required []tei.Name, parser string, profile align.Profile) {
	var sel []tei.Selection
	mode := "gold"
	if parser == "" {
		var namespaced bool
		sel, namespaced = tei.SelectGold(ref, required)
		if !namespaced {
			mode = "gold, unprefixed"
		}
	} else {
		sel = tei.SelectFields(ref, required, tei.SelectOptions{Namespaced: profile.Namespaced, PointerRefs: profile.PointerRefs})
		mode = parser
	}

	if len(sel) == 0 {
		fmt.Fprintf(w, "Selected (%s): nothing to compare\n", mode)
		return
	}
	fmt.Fprintf(w, "Selected (%s):\n", mode)
	for _, s := range sel {
		values := lo.Map(s.Values, func(v tei.Value, _ int) string { return v.String() })
		fmt.Fprintf(w, "  %-28s %s\n", s.Field, strings.Join(values, " | "))
	}
}

func joinFields(names []tei.Name) string {
	return strings.Join(lo.Map(names, func(n tei.Name, _ int) string { return n.String() }), ", ")
}
