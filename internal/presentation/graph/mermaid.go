package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/guard"
	"github.com/aretw0/manifold/pkg/manifest"
)

// GraphOverlay contains entity data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a workflow.
// It applies semantic styling:
// - Initial state: ((Circle))
// - Resolved-like state: ([Stadium])
// - Default: [Rectangle]
// Guarded edges are dotted. Overlay styles (Visited/Current) are applied if provided.
func GenerateMermaid(wf *manifest.WorkflowDef, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if wf == nil {
		return sb.String()
	}

	for _, state := range wf.States {
		safeID := sanitizeMermaidID(state)

		opener, closer := "[", "]"
		switch {
		case state == wf.Initial:
			opener, closer = "((", "))"
		case domain.IsResolvedLike(state):
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, state, closer))
	}

	for _, edge := range wf.Transitions {
		label := strings.ReplaceAll(edge.TriggerLabel, "\"", "'")
		if label == "" {
			label = edge.Trigger
		}

		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if edge.Guard != nil && edge.Guard.Kind() != guard.KindNone {
			desc := strings.ReplaceAll(guard.Describe(edge.Guard), "\"", "'")
			arrow = fmt.Sprintf("-. \"%s <br/> %s\" .->", label, desc)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(edge.From), arrow, sanitizeMermaidID(edge.To)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
