package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-ebooks-catalog/config"
	"github.com/aluiziolira/go-ebooks-catalog/models"
)

// The menu endpoint queried with the root subject id returns the category
// groups at fixed positions of subject_menus. This is an upstream ordering
// assumption, not a documented contract: index 0 is the synthetic "all
// subjects" menu, 1-3 carry the groups. A response with fewer entries is
// treated as a contract change and rejected.
const (
	popularMenuIndex    = 1
	fictionMenuIndex    = 2
	nonFictionMenuIndex = 3
	minRootMenus        = 4
)

type menuEntry struct {
	SubjectName string `json:"subject_name"`
	ID          int    `json:"id"`
}

type subjectMenu struct {
	Entries []menuEntry `json:"subject_menu_entries"`
}

type menuResponse struct {
	SubjectMenus []subjectMenu `json:"subject_menus"`
}

// Resolver fetches the subject/topic taxonomy. Menu responses are cached per
// subject id so a selection session does not hammer the menu endpoint.
type Resolver struct {
	client *Client
	cfg    *config.Config
	cache  *lru.Cache[int, *menuResponse]
}

// NewResolver builds a resolver on top of client.
func NewResolver(client *Client, cfg *config.Config) (*Resolver, error) {
	cache, err := lru.New[int, *menuResponse](cfg.MenuCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create menu cache: %w", err)
	}
	return &Resolver{
		client: client,
		cfg:    cfg,
		cache:  cache,
	}, nil
}

// CategoryGroups fetches the three top-level subject groups (Popular,
// Fiction, Non-Fiction) in one call against the root subject.
func (r *Resolver) CategoryGroups(ctx context.Context) (*models.CategoryGroups, error) {
	resp, err := r.menu(ctx, r.cfg.RootSubjectID)
	if err != nil {
		return nil, err
	}
	if len(resp.SubjectMenus) < minRootMenus {
		return nil, MalformedError{
			Err: fmt.Errorf("subject_menus has %d entries, want at least %d", len(resp.SubjectMenus), minRootMenus),
		}
	}

	return &models.CategoryGroups{
		Popular:    topicSet(resp.SubjectMenus[popularMenuIndex]),
		Fiction:    topicSet(resp.SubjectMenus[fictionMenuIndex]),
		NonFiction: topicSet(resp.SubjectMenus[nonFictionMenuIndex]),
	}, nil
}

// Topics fetches the sub-topics of a subject. An empty set is not an error:
// it marks a leaf subject, and callers use the subject id itself as the
// selection id.
func (r *Resolver) Topics(ctx context.Context, subjectID int) (*models.TopicSet, error) {
	resp, err := r.menu(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(resp.SubjectMenus) == 0 {
		return nil, MalformedError{Err: fmt.Errorf("subject_menus missing for subject %d", subjectID)}
	}
	return topicSet(resp.SubjectMenus[0]), nil
}

func (r *Resolver) menu(ctx context.Context, subjectID int) (*menuResponse, error) {
	if cached, ok := r.cache.Get(subjectID); ok {
		return cached, nil
	}

	params := url.Values{
		"CountryCode": {r.cfg.CountryCode},
		"subjectID":   {strconv.Itoa(subjectID)},
	}
	var resp menuResponse
	if err := r.client.Fetch(ctx, MenuEndpoint, params, &resp); err != nil {
		return nil, err
	}

	r.cache.Add(subjectID, &resp)
	return &resp, nil
}

func topicSet(menu subjectMenu) *models.TopicSet {
	set := &models.TopicSet{}
	for _, entry := range menu.Entries {
		set.Add(entry.SubjectName, entry.ID)
	}
	return set
}
