package models

import "sort"

// MemberSet is a set of GitHub logins.
type MemberSet map[string]struct{}

func NewMemberSet(logins ...string) MemberSet {
	s := make(MemberSet, len(logins))
	for _, l := range logins {
		s[l] = struct{}{}
	}
	return s
}

func (s MemberSet) Has(login string) bool {
	_, ok := s[login]
	return ok
}

// Minus returns the members of s missing from every one of others.
func (s MemberSet) Minus(others ...MemberSet) MemberSet {
	out := make(MemberSet)
	for l := range s {
		keep := true
		for _, o := range others {
			if o.Has(l) {
				keep = false
				break
			}
		}
		if keep {
			out[l] = struct{}{}
		}
	}
	return out
}

func (s MemberSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// TeamChanges is the result of synchronizing a maintainer team.
type TeamChanges struct {
	Current    MemberSet
	Previous   MemberSet
	NewlyAdded MemberSet
}

// Changed reports whether any of the sets is non-empty.
func (t TeamChanges) Changed() bool {
	return len(t.Current) > 0 || len(t.Previous) > 0 || len(t.NewlyAdded) > 0
}
