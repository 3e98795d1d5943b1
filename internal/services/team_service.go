package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/cache"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/regex"
)

const (
	allMembersTeam   = "all-members"
	filterOutKey     = "filter-out"
	recipeMetaLegacy = "recipe/meta.yaml"
)

var _ ports.TeamSyncer = (*TeamService)(nil)

// TeamService keeps the GitHub team of a feedstock equal to the maintainers
// listed in its recipe.
type TeamService struct {
	vcs        ports.HostingClient
	workspaces ports.WorkspaceProvider
	trans      *i18n.Translations
	cfg        *config.Config
	filterOut  *cache.Cache[models.MemberSet]
}

func NewTeamService(vcs ports.HostingClient, workspaces ports.WorkspaceProvider, trans *i18n.Translations, cfg *config.Config, filterOut *cache.Cache[models.MemberSet]) *TeamService {
	return &TeamService{
		vcs:        vcs,
		workspaces: workspaces,
		trans:      trans,
		cfg:        cfg,
		filterOut:  filterOut,
	}
}

type recipeMeta struct {
	Package struct {
		Name string `yaml:"name"`
	} `yaml:"package"`
	Maintainers []string `yaml:"maintainers"`
	Extra       struct {
		RecipeMaintainers []string `yaml:"recipe-maintainers"`
	} `yaml:"extra"`
}

// parseMaintainers reads the maintainer handles of a recipe. Jinja is
// stripped first since recipes are templates. Team handles (org/team) are
// skipped.
func parseMaintainers(data []byte) (models.MemberSet, error) {
	text := regex.JinjaStatement.ReplaceAllString(string(data), "")
	text = regex.JinjaExpr.ReplaceAllString(text, "jinja")

	var meta recipeMeta
	if err := yaml.Unmarshal([]byte(text), &meta); err != nil {
		return nil, errors.ErrRecipeMeta.WithError(err)
	}

	handles := meta.Extra.RecipeMaintainers
	if len(handles) == 0 {
		handles = meta.Maintainers
	}

	out := models.NewMemberSet()
	for _, h := range handles {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || strings.Contains(h, "/") {
			continue
		}
		out[h] = struct{}{}
	}
	return out, nil
}

func readRecipeMeta(dir string) ([]byte, error) {
	for _, name := range []string{recipeMetaLegacy, recipeMetaFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.ErrRecipeMeta.WithError(err).WithContext("file", name)
		}
	}
	return nil, errors.ErrRecipeMeta.WithContext("dir", dir)
}

// Configure makes the team named project match maintainers. It returns the
// members before the change and the maintainers that were not yet part of
// the organization.
func (s *TeamService) Configure(ctx context.Context, maintainers models.MemberSet, org, repo, project string) (previous, newOrgMembers models.MemberSet, err error) {
	log := logger.FromContext(ctx).With("team", project)
	previous = models.NewMemberSet()
	newOrgMembers = models.NewMemberSet()

	team, err := s.vcs.GetTeamBySlug(ctx, org, project)
	if err != nil {
		return nil, nil, errors.ErrTeamSync.WithError(err)
	}
	if team == nil {
		log.Info("creating maintainer team")
		if _, err := s.vcs.CreateTeam(ctx, org, project); err != nil {
			return nil, nil, errors.ErrTeamSync.WithError(err)
		}
		if err := s.vcs.AddTeamRepo(ctx, org, project, org, repo); err != nil {
			return nil, nil, errors.ErrTeamSync.WithError(err)
		}
	} else {
		members, err := s.vcs.ListTeamMembers(ctx, org, project)
		if err != nil {
			return nil, nil, errors.ErrTeamSync.WithError(err)
		}
		for _, m := range members {
			previous[strings.ToLower(m)] = struct{}{}
		}
	}

	var orgMembers models.MemberSet
	for _, login := range maintainers.Minus(previous).Sorted() {
		if err := s.vcs.AddTeamMembership(ctx, org, project, login); err != nil {
			return nil, nil, errors.ErrTeamSync.WithError(err).WithContext("user", login)
		}

		if orgMembers == nil {
			members, err := s.vcs.ListTeamMembers(ctx, org, allMembersTeam)
			if err != nil {
				return nil, nil, errors.ErrTeamSync.WithError(err)
			}
			orgMembers = models.NewMemberSet()
			for _, m := range members {
				orgMembers[strings.ToLower(m)] = struct{}{}
			}
		}
		if !orgMembers.Has(login) {
			if err := s.vcs.AddTeamMembership(ctx, org, allMembersTeam, login); err != nil {
				return nil, nil, errors.ErrTeamSync.WithError(err).WithContext("user", login)
			}
			newOrgMembers[login] = struct{}{}
		}
	}

	for _, login := range previous.Minus(maintainers).Sorted() {
		log.Info("removing stale maintainer", "user", login)
		if err := s.vcs.RemoveTeamMembership(ctx, org, project, login); err != nil {
			return nil, nil, errors.ErrTeamSync.WithError(err).WithContext("user", login)
		}
	}

	return previous, newOrgMembers, nil
}

func (s *TeamService) UpdateTeam(ctx context.Context, org, repo, commitSHA string) (models.TeamChanges, error) {
	if !strings.HasSuffix(repo, s.cfg.FeedstockSuffix) {
		return models.TeamChanges{}, nil
	}
	ctx = logger.With(ctx, "repo", org+"/"+repo)

	var maintainers models.MemberSet
	err := s.workspaces.WithClone(ctx, s.workspaces.RepoURL(org, repo), "", func(ws ports.WorkspaceSession) error {
		data, err := readRecipeMeta(ws.Dir())
		if err != nil {
			return err
		}
		maintainers, err = parseMaintainers(data)
		return err
	})
	if err != nil {
		return models.TeamChanges{}, err
	}

	project := strings.TrimSuffix(repo, s.cfg.FeedstockSuffix)
	previous, newOrgMembers, err := s.Configure(ctx, maintainers, org, repo, project)
	if err != nil {
		return models.TeamChanges{}, err
	}

	changes := models.TeamChanges{
		Current:    maintainers,
		Previous:   previous,
		NewlyAdded: newOrgMembers,
	}

	if commitSHA != "" {
		if err := s.welcome(ctx, org, repo, commitSHA, changes); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

// welcome posts a commit comment greeting the maintainers added because of
// the commit. Nothing is posted when everyone was filtered out.
func (s *TeamService) welcome(ctx context.Context, org, repo, sha string, changes models.TeamChanges) error {
	newm, err := s.handles(ctx, org, changes.NewlyAdded)
	if err != nil {
		return err
	}
	addm, err := s.handles(ctx, org, changes.Current.Minus(changes.Previous, changes.NewlyAdded))
	if err != nil {
		return err
	}
	if len(newm) == 0 && len(addm) == 0 {
		return nil
	}

	parts := []string{
		s.trans.GetMessage("webservice_greeting", 0, nil),
		s.trans.GetMessage("team_commit_intro", 0, nil),
	}
	if len(newm) > 0 {
		parts = append(parts, "- "+s.trans.GetMessage("team_new_org_members", len(newm), map[string]interface{}{
			"Handles": strings.Join(newm, ", "),
			"Org":     org,
		}))
	}
	if len(addm) > 0 {
		parts = append(parts, "- "+s.trans.GetMessage("team_new_maintainers", len(addm), map[string]interface{}{
			"Handles": strings.Join(addm, ", "),
		}))
	}
	parts = append(parts, s.trans.GetMessage("team_commit_outro", 0, nil))

	return s.vcs.CreateCommitComment(ctx, org, repo, sha, strings.Join(parts, "\n\n")+"\n")
}

// handles formats members as @-mentions, leaving out members of the
// configured filter-out teams.
func (s *TeamService) handles(ctx context.Context, org string, members models.MemberSet) ([]string, error) {
	if len(members) == 0 {
		return nil, nil
	}
	out, err := s.filterOutMembers(ctx, org)
	if err != nil {
		return nil, err
	}

	var handles []string
	for _, m := range members.Minus(out).Sorted() {
		handles = append(handles, "@"+m)
	}
	return handles, nil
}

func (s *TeamService) filterOutMembers(ctx context.Context, org string) (models.MemberSet, error) {
	load := func(ctx context.Context) (models.MemberSet, error) {
		out := models.NewMemberSet()
		for _, slug := range s.cfg.FilterOutTeams {
			members, err := s.vcs.ListTeamMembers(ctx, org, slug)
			if err != nil {
				return nil, errors.ErrTeamSync.WithError(err).WithContext("team", slug)
			}
			for _, m := range members {
				out[strings.ToLower(m)] = struct{}{}
			}
		}
		return out, nil
	}

	if s.filterOut == nil {
		return load(ctx)
	}
	return s.filterOut.GetOrLoad(ctx, org+"/"+filterOutKey, load)
}

// InvalidateFilterOut drops the cached filter-out members so the next
// welcome comment reloads them.
func (s *TeamService) InvalidateFilterOut(org string) {
	if s.filterOut != nil {
		s.filterOut.Invalidate(org + "/" + filterOutKey)
	}
}
