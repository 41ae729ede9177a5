package hooks_test

import (
	"context"
	"slices"
	"testing"

	"github.com/jonesrussell/north-cloud/list-pages/internal/hooks"
)

func TestChain_RunsInRegistrationOrder(t *testing.T) {
	chain := hooks.NewChain[[]string]()
	chain.Register("append-a", func(_ context.Context, in []string) []string {
		return append(in, "a")
	})
	chain.Register("drop-node", func(_ context.Context, in []string) []string {
		return slices.DeleteFunc(in, func(s string) bool { return s == "node" })
	})
	chain.Register("append-b", func(_ context.Context, in []string) []string {
		return append(in, "b")
	})

	got := chain.Run(context.Background(), []string{"node", "media"})
	want := []string{"media", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("Run() = %v, want %v", got, want)
	}
	if names := chain.Names(); !slices.Equal(names, []string{"append-a", "drop-node", "append-b"}) {
		t.Errorf("Names() = %v", names)
	}
}

func TestChain_NilAndEmpty(t *testing.T) {
	var nilChain *hooks.Chain[int]
	if got := nilChain.Run(context.Background(), 7); got != 7 {
		t.Errorf("nil chain Run() = %d, want 7", got)
	}

	chain := hooks.NewChain[int]()
	chain.Register("ignored", nil)
	if got := chain.Run(context.Background(), 3); got != 3 {
		t.Errorf("empty chain Run() = %d, want 3", got)
	}
}
