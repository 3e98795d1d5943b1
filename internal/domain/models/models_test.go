package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandSet(t *testing.T) {
	t.Run("duplicates collapse", func(t *testing.T) {
		s := NewCommandSet(CommandRerender, CommandRerender, CommandRelint)

		assert.Equal(t, 2, s.Len())
		assert.True(t, s.Has(CommandRerender))
		assert.True(t, s.Has(CommandRelint))
		assert.False(t, s.Has(CommandUpdateTeam))
	})

	t.Run("empty set", func(t *testing.T) {
		assert.True(t, NewCommandSet().Empty())
	})
}

func TestNewRepoContext(t *testing.T) {
	tests := []struct {
		name      string
		repo      string
		staged    bool
		feedstock bool
	}{
		{name: "feedstock", repo: "ndx-foo-feedstock", feedstock: true},
		{name: "staged", repo: "staged-extensions", staged: true},
		{name: "other", repo: "nwb-extensions.github.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRepoContext("nwb-extensions", tt.repo, "staged-extensions", "-feedstock")

			assert.Equal(t, tt.staged, r.IsStaged)
			assert.Equal(t, tt.feedstock, r.IsFeedstock)
			assert.Equal(t, tt.staged || tt.feedstock, r.Accepted())
		})
	}

	r := NewRepoContext("nwb-extensions", "ndx-foo-feedstock", "staged-extensions", "-feedstock")
	assert.Equal(t, "ndx-foo", r.ProjectName("-feedstock"))
	assert.Equal(t, "nwb-extensions/ndx-foo-feedstock", r.FullName())
}

func TestMemberSet(t *testing.T) {
	current := NewMemberSet("a", "b", "c")
	previous := NewMemberSet("a")
	newcomers := NewMemberSet("c")

	added := current.Minus(previous, newcomers)

	assert.Equal(t, []string{"b"}, added.Sorted())
}

func TestTeamChanges(t *testing.T) {
	assert.False(t, TeamChanges{}.Changed())
	assert.True(t, TeamChanges{Previous: NewMemberSet("x")}.Changed())
}
