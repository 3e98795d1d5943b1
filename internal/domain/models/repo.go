package models

import "strings"

// RepoContext describes the repository an event happened in.
type RepoContext struct {
	Organization string
	Name         string
	IsStaged     bool
	IsFeedstock  bool
}

func NewRepoContext(org, name, stagedRepo, feedstockSuffix string) RepoContext {
	return RepoContext{
		Organization: org,
		Name:         name,
		IsStaged:     name == stagedRepo,
		IsFeedstock:  strings.HasSuffix(name, feedstockSuffix),
	}
}

// Accepted reports whether the bot handles commands for this repository at
// all.
func (r RepoContext) Accepted() bool {
	return r.IsFeedstock || r.IsStaged
}

func (r RepoContext) FullName() string {
	return r.Organization + "/" + r.Name
}

// ProjectName is the feedstock name without its suffix, which is also the
// maintainer team slug.
func (r RepoContext) ProjectName(feedstockSuffix string) string {
	return strings.TrimSuffix(r.Name, feedstockSuffix)
}
