package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/continuity/internal/presentation/graph"
	"github.com/aretw0/continuity/pkg/actions"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/dsl"
)

func TestGenerateMermaid(t *testing.T) {
	do := func(name string) func(*dsl.Builder) *dsl.Builder {
		return func(b *dsl.Builder) *dsl.Builder {
			return b.Append(actions.Func(name, func(context.Context, *domain.Context) error { return nil }))
		}
	}
	always := func(*domain.Context) bool { return true }

	tests := []struct {
		name     string
		build    func() *dsl.Builder
		contains []string
	}{
		{
			name: "Sequence",
			build: func() *dsl.Builder {
				return do("b")(do("a")(dsl.New("seq")))
			},
			contains: []string{
				"graph TD\n",
				`action_1["a"]`,
				"action_1 --> action_2",
				"action_2 --> END",
				`END(("END"))`,
			},
		},
		{
			name: "Loop",
			build: func() *dsl.Builder {
				return do("body")(dsl.New("loop").Loop(3)).Close()
			},
			contains: []string{
				`loop_1{{"loop loop-1"}}`,
				`loop_1 -- "×3" --> action_2`,
				`loop_1 -- "done" --> END`,
				"action_2 -.-> loop_1",
			},
		},
		{
			name: "Branch",
			build: func() *dsl.Builder {
				return do("yes")(dsl.New("branch").IfThen("ready", always)).Close()
			},
			contains: []string{
				`branch_1{"if branch-1"}`,
				`branch_1 -- "ready" --> action_2`,
				`branch_1 -- "none" --> merge_3`,
				`merge_3(("merge-3"))`,
			},
		},
		{
			name: "Concurrent",
			build: func() *dsl.Builder {
				b := do("a")(dsl.New("fork").NewThread()).NewThread()
				return do("b")(b).Close()
			},
			contains: []string{
				`concurrent_1[/"concurrently"\]`,
				`concurrent_1 -- "thread 1" --> action_2`,
				`concurrent_1 -- "thread 2" --> action_3`,
				"action_3 --> join_4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := tt.build().Build()
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			got := graph.GenerateMermaid(exp, nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, got)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	exp := dsl.New("overlay").
		Append(actions.Set("a", 1)).
		Append(actions.Set("b", 2)).
		MustBuild()

	got := graph.GenerateMermaid(exp, &graph.GraphOverlay{
		VisitedElements: []string{"action-1", "action-1", "action-2"},
		FailedElement:   "action-2",
	})

	if strings.Count(got, "class action_1 visited;") != 1 {
		t.Errorf("Expected visited class once, got:\n%s", got)
	}
	if !strings.Contains(got, "class action_2 failed;") {
		t.Errorf("Expected failed class, got:\n%s", got)
	}
	if !strings.Contains(got, `action_1["set a=1"]`) {
		t.Errorf("Expected action label, got:\n%s", got)
	}
}
