package graph

import (
	"fmt"
	"strings"

	flow "github.com/aretw0/continuity/pkg/graph"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedElements []string
	FailedElement   string
}

// GenerateMermaid produces a Mermaid flowchart of exp.
// It applies semantic styling:
// - END: ((Circle))
// - Action: [Rectangle]
// - Loop: {{Hexagon}}
// - Branch: {Rhombus}
// - Concurrent: [/Trapezoid\]
// - Merge/Join: ((small label))
// Edges closing a loop body are dotted. Overlay styles are applied if provided.
func GenerateMermaid(exp *flow.Experiment, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for el := range exp.All() {
		id := sanitizeMermaidID(el.ID())
		opener, closer := shape(el.Kind())
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escape(label(el)), closer))

		for _, e := range edges(el) {
			to := sanitizeMermaidID(e.to.ID())
			arrow := "-->"
			if e.loopBack {
				arrow = "-.->"
			}
			if e.label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.label))
				if e.loopBack {
					arrow = fmt.Sprintf("-. \"%s\" .->", escape(e.label))
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", id, arrow, to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, v := range overlay.VisitedElements {
			id := sanitizeMermaidID(v)
			if id != "" && !seen[id] {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
			}
		}
		if overlay.FailedElement != "" {
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", sanitizeMermaidID(overlay.FailedElement)))
		}
	}

	return sb.String()
}

type edge struct {
	to       flow.Element
	label    string
	loopBack bool
}

func edges(el flow.Element) []edge {
	switch v := el.(type) {
	case *flow.Loop:
		next := v.IterateToNext()[1]
		return []edge{
			{to: v.Body(), label: fmt.Sprintf("×%d", v.Times()), loopBack: v.Body() == flow.Element(v)},
			{to: next, label: "done", loopBack: closesLoop(v, next)},
		}
	case *flow.Branch:
		out := make([]edge, 0, v.Arms()+1)
		for i := range v.Arms() {
			label, entry := v.Arm(i)
			out = append(out, edge{to: entry, label: label})
		}
		if !hasElse(v) {
			next := v.IterateToNext()
			out = append(out, edge{to: next[len(next)-1], label: "none"})
		}
		return out
	case *flow.Concurrent:
		out := make([]edge, 0, len(v.Threads()))
		for i, t := range v.Threads() {
			out = append(out, edge{to: t, label: fmt.Sprintf("thread %d", i+1)})
		}
		return out
	}

	var out []edge
	for _, next := range el.IterateToNext() {
		out = append(out, edge{to: next, loopBack: closesLoop(el, next)})
	}
	return out
}

// closesLoop reports whether the edge el -> next goes back to the loop enclosing el.
func closesLoop(el, next flow.Element) bool {
	_, isLoop := next.(*flow.Loop)
	return isLoop && el.Scope() == next
}

func hasElse(b *flow.Branch) bool {
	for i := range b.Arms() {
		if label, _ := b.Arm(i); label == "else" {
			return true
		}
	}
	return false
}

func label(el flow.Element) string {
	switch v := el.(type) {
	case *flow.Loop:
		return fmt.Sprintf("loop %s", v.Name())
	case *flow.Branch:
		return "if " + v.Name()
	case *flow.Concurrent:
		return "concurrently"
	}
	if el.HasAction() {
		return flow.ActionName(el.Action())
	}
	return el.ID()
}

func shape(k flow.Kind) (string, string) {
	switch k {
	case flow.KindEnd:
		return "((", "))"
	case flow.KindLoop:
		return "{{", "}}"
	case flow.KindBranch:
		return "{", "}"
	case flow.KindConcurrent:
		return "[/", "\\]"
	case flow.KindMerge, flow.KindJoin:
		return "((", "))"
	}
	return "[", "]"
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
