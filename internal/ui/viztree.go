package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"baml/internal/viz"
)

var (
	vizRootStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	vizHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	vizBranchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	vizLoopStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	vizScopeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	vizGuideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func vizStyle(t viz.NodeType) lipgloss.Style {
	switch t {
	case viz.NodeFunctionRoot:
		return vizRootStyle
	case viz.NodeHeader:
		return vizHeaderStyle
	case viz.NodeBranchGroup, viz.NodeBranchArm:
		return vizBranchStyle
	case viz.NodeLoop:
		return vizLoopStyle
	default:
		return vizScopeStyle
	}
}

// VizTree draws a function's node list as a tree. nodes must be in
// pre-order, each parent before its children.
func VizTree(nodes []viz.NodeMeta) string {
	var b strings.Builder
	// lastChild[i] is true when no later node shares i's parent
	lastChild := make([]bool, len(nodes))
	for i, n := range nodes {
		lastChild[i] = true
		for _, later := range nodes[i+1:] {
			if later.ParentLogFilterKey == n.ParentLogFilterKey {
				lastChild[i] = false
				break
			}
		}
	}

	// open holds, per depth, whether the ancestor at that depth has more
	// siblings below it
	index := make(map[string]int, len(nodes))
	depth := make([]int, len(nodes))
	var open []bool
	for i, n := range nodes {
		index[n.LogFilterKey] = i
		if p, ok := index[n.ParentLogFilterKey]; ok && n.ParentLogFilterKey != "" {
			depth[i] = depth[p] + 1
		}
		open = append(open[:min(depth[i], len(open))], !lastChild[i])

		var prefix strings.Builder
		for d := 1; d < depth[i]; d++ {
			if open[d] {
				prefix.WriteString("│  ")
			} else {
				prefix.WriteString("   ")
			}
		}
		if depth[i] > 0 {
			if lastChild[i] {
				prefix.WriteString("└─ ")
			} else {
				prefix.WriteString("├─ ")
			}
		}
		b.WriteString(vizGuideStyle.Render(prefix.String()))
		b.WriteString(vizStyle(n.Type).Render(nodeTitle(n)))
		b.WriteByte('\n')
	}
	return b.String()
}

func nodeTitle(n viz.NodeMeta) string {
	switch {
	case n.Type == viz.NodeHeader:
		return strings.Repeat("#", int(max(n.HeaderLevel, 1))) + " " + n.Label
	case n.Label != "":
		return fmt.Sprintf("%s %s", n.Type, n.Label)
	default:
		return n.Type.String()
	}
}

// VizEventLine renders one event of a live run, indented by the reducer
// depth of the node.
func VizEventLine(depth int, function string, ev viz.ExecEvent) string {
	arrow := "→"
	if ev.Event == viz.Exit {
		arrow = "←"
	}
	title := nodeTitle(viz.NodeMeta{Type: ev.NodeType, Label: ev.Label, HeaderLevel: ev.HeaderLevel})
	return fmt.Sprintf("%s%s %s %s",
		strings.Repeat("  ", max(depth, 0)),
		vizGuideStyle.Render(arrow),
		vizStyle(ev.NodeType).Render(title),
		vizGuideStyle.Render(function+"#"+fmt.Sprint(ev.NodeID)))
}
