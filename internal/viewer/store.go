package viewer

import (
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/pkg/logger"
)

// Groups is the author grouping of one story listing. Authors are ordered by
// their first appearance in the listing and stories keep listing order.
// A Groups value is immutable once built.
type Groups struct {
	order  []*domain.AuthorGroup
	byUser map[string]int
}

// BuildGroups rebuilds the grouping from scratch. Records without an owner are
// dropped. Owner name and avatar come from the last record seen for the owner.
func BuildGroups(stories []domain.Story, log logger.Logger) *Groups {
	g := &Groups{byUser: make(map[string]int)}

	for _, s := range stories {
		if s.UserID == "" {
			if log != nil {
				log.Warn("Dropping story without owner", "story_id", s.ID)
			}
			continue
		}

		i, ok := g.byUser[s.UserID]
		if !ok {
			i = len(g.order)
			g.byUser[s.UserID] = i
			g.order = append(g.order, &domain.AuthorGroup{UserID: s.UserID})
		}

		group := g.order[i]
		group.UserName = s.UserName
		group.UserAvatar = s.UserAvatar
		group.Stories = append(group.Stories, s)
	}

	return g
}

func (g *Groups) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// At returns the group at position i in author order.
func (g *Groups) At(i int) *domain.AuthorGroup {
	if i < 0 || i >= g.Len() {
		return nil
	}
	return g.order[i]
}

// IndexOf returns the author position of userID.
func (g *Groups) IndexOf(userID string) (int, bool) {
	if g == nil {
		return 0, false
	}
	i, ok := g.byUser[userID]
	return i, ok
}

func (g *Groups) ByUser(userID string) (*domain.AuthorGroup, bool) {
	i, ok := g.IndexOf(userID)
	if !ok {
		return nil, false
	}
	return g.order[i], true
}

// Story returns the story at pos, if pos is in bounds.
func (g *Groups) Story(pos Position) (domain.Story, bool) {
	group := g.At(pos.Group)
	if group == nil || pos.Index < 0 || pos.Index >= len(group.Stories) {
		return domain.Story{}, false
	}
	return group.Stories[pos.Index], true
}

// Slice returns copies of the groups in author order.
func (g *Groups) Slice() []domain.AuthorGroup {
	out := make([]domain.AuthorGroup, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		group := *g.order[i]
		group.Stories = append([]domain.Story(nil), group.Stories...)
		out = append(out, group)
	}
	return out
}
