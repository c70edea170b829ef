// SPDX-License-Identifier: MPL-2.0

package setconfig

import (
	"fmt"
	"strings"

	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/match"
)

// Explain renders a markdown description of how each key groups its files.
func Explain(doc *Document) string {
	var sb strings.Builder

	sb.WriteString("# Grouping configuration\n\n")
	sb.WriteString("Records are keyed by ")
	for i, l := range doc.LoopOver {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "`%s`", l)
	}
	sb.WriteString(".\n")

	for _, cfg := range doc.Sets {
		fmt.Fprintf(&sb, "\n## %s\n\n", cfg.Key)
		if cfg.Suffix != cfg.Key {
			fmt.Fprintf(&sb, "- Reads files with suffix `%s`\n", cfg.Suffix)
		}
		fmt.Fprintf(&sb, "- Set type: **%s**\n", cfg.Kind())

		switch cfg.Kind() {
		case KindPlain:
			if len(cfg.Plain.Filter) > 0 {
				fmt.Fprintf(&sb, "- Keeps only items matching `%s`\n", cfg.Plain.Filter)
			}
			if len(cfg.Plain.ExcludeEntities) > 0 {
				fmt.Fprintf(&sb, "- Skips items carrying any of %s\n", codeList(cfg.Plain.ExcludeEntities))
			}
		case KindNamed:
			writeGroups(&sb, cfg.Named.Groups)
		case KindSequential:
			ss := cfg.Sequential
			fmt.Fprintf(&sb, "- Ordered by %s", codeList(ss.Entities))
			if len(ss.Entities) > 1 {
				fmt.Fprintf(&sb, " (%s)", ss.Order)
			}
			sb.WriteString("\n")
			if len(ss.Parts) > 0 {
				fmt.Fprintf(&sb, "- Each position pairs %s by `%s`\n", codeList(ss.Parts), ss.PartEntity)
			}
		case KindMixed:
			ms := cfg.Mixed
			if ms.NamedDimension != "" {
				fmt.Fprintf(&sb, "- Groups matched on `%s` only\n", ms.NamedDimension)
			}
			fmt.Fprintf(&sb, "- Each group ordered by `%s`\n", ms.SequentialDimension)
			writeGroups(&sb, ms.Groups)
		}

		if len(cfg.Required) > 0 {
			fmt.Fprintf(&sb, "- Requires groups %s\n", codeList(cfg.Required))
		}
		if len(cfg.Include) > 0 {
			fmt.Fprintf(&sb, "- Includes task-independent %s\n", codeList(cfg.Include))
		}
	}

	if len(doc.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w.String())
		}
	}
	return sb.String()
}

func writeGroups(sb *strings.Builder, groups []match.Group) {
	sb.WriteString("\n| Group | Pattern |\n|---|---|\n")
	for _, g := range groups {
		terms := make([]string, len(g.Pattern))
		for i, t := range g.Pattern {
			terms[i] = fmt.Sprintf("%s=%s", entity.LongName(t.Entity), t.Value)
		}
		fmt.Fprintf(sb, "| %s | `%s` |\n", g.Name, strings.Join(terms, ", "))
	}
	sb.WriteString("\n")
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "`" + it + "`"
	}
	return strings.Join(quoted, ", ")
}
