package memstore

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/data/repos"
	"github.com/yungbote/commonground-backend/internal/domain/alignment"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

var (
	_ repos.ResponseRepo       = (*responseRepo)(nil)
	_ repos.TopicScoreRepo     = (*topicScoreRepo)(nil)
	_ repos.GroupRepo          = (*groupRepo)(nil)
	_ repos.GroupMemberRepo    = (*groupMemberRepo)(nil)
	_ repos.SurveyDocumentRepo = (*surveyDocumentRepo)(nil)
)

func overlayOf[K comparable, V any](tx *memTx, pick func(*memTx) *overlay[K, V]) *overlay[K, V] {
	if tx == nil {
		return nil
	}
	return pick(tx)
}

func responsesOf(tx *memTx) *overlay[string, alignment.Response] {
	return overlayOf(tx, func(t *memTx) *overlay[string, alignment.Response] { return t.responses })
}

func topicScoresOf(tx *memTx) *overlay[string, alignment.TopicScoreUser] {
	return overlayOf(tx, func(t *memTx) *overlay[string, alignment.TopicScoreUser] { return t.topicScores })
}

func groupsOf(tx *memTx) *overlay[uint64, alignment.Group] {
	return overlayOf(tx, func(t *memTx) *overlay[uint64, alignment.Group] { return t.groups })
}

func membersOf(tx *memTx) *overlay[alignment.MemberKey, alignment.GroupMember] {
	return overlayOf(tx, func(t *memTx) *overlay[alignment.MemberKey, alignment.GroupMember] { return t.members })
}

func documentsOf(tx *memTx) *overlay[string, alignment.SurveyDocument] {
	return overlayOf(tx, func(t *memTx) *overlay[string, alignment.SurveyDocument] { return t.documents })
}

// ---- responses ----

type responseRepo struct{ s *Store }

func (r *responseRepo) Upsert(dbc dbctx.Context, rows []*alignment.Response) error {
	if len(rows) == 0 {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		for _, row := range rows {
			if row == nil {
				continue
			}
			tx.responses.put(row.ID, *row)
		}
		return nil
	})
}

func (r *responseRepo) ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*alignment.Response, error) {
	return r.list(dbc, userID, version, nil), nil
}

func (r *responseRepo) ListByUserVersionTopics(dbc dbctx.Context, userID uuid.UUID, version string, topicIDs []string) ([]*alignment.Response, error) {
	if len(topicIDs) == 0 {
		return []*alignment.Response{}, nil
	}
	want := make(map[string]bool, len(topicIDs))
	for _, t := range topicIDs {
		want[t] = true
	}
	return r.list(dbc, userID, version, want), nil
}

func (r *responseRepo) list(dbc dbctx.Context, userID uuid.UUID, version string, topics map[string]bool) []*alignment.Response {
	out := []*alignment.Response{}
	if userID == uuid.Nil || version == "" {
		return out
	}
	r.s.read(dbc, func(tx *memTx) {
		each(responsesOf(tx), r.s.responses, func(_ string, v alignment.Response) {
			if v.UserID != userID || v.SurveyVersion != version {
				return
			}
			if topics != nil && !topics[v.TopicID] {
				return
			}
			row := v
			out = append(out, &row)
		})
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].TopicID != out[j].TopicID && topics != nil {
			return out[i].TopicID < out[j].TopicID
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	return out
}

// ---- topic scores ----

type topicScoreRepo struct{ s *Store }

func (r *topicScoreRepo) Upsert(dbc dbctx.Context, rows []*alignment.TopicScoreUser) error {
	if len(rows) == 0 {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		for _, row := range rows {
			if row == nil {
				continue
			}
			tx.topicScores.put(row.ID, *row)
		}
		return nil
	})
}

func (r *topicScoreRepo) ListByUserVersion(dbc dbctx.Context, userID uuid.UUID, version string) ([]*alignment.TopicScoreUser, error) {
	out := []*alignment.TopicScoreUser{}
	if userID == uuid.Nil || version == "" {
		return out, nil
	}
	r.s.read(dbc, func(tx *memTx) {
		each(topicScoresOf(tx), r.s.topicScores, func(_ string, v alignment.TopicScoreUser) {
			if v.UserID == userID && v.SurveyVersion == version {
				row := v
				out = append(out, &row)
			}
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

// ---- groups ----

type groupRepo struct{ s *Store }

func (r *groupRepo) Create(dbc dbctx.Context, g *alignment.Group) error {
	if g == nil {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		dup := false
		r.s.read(dbc, func(*memTx) {
			each(tx.groups, r.s.groups, func(_ uint64, v alignment.Group) {
				if v.GroupCode == g.GroupCode {
					dup = true
				}
			})
		})
		if dup {
			return ErrDuplicateKey
		}
		now := time.Now().UTC()
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		if g.UpdatedAt.IsZero() {
			g.UpdatedAt = g.CreatedAt
		}
		g.ID = r.s.allocGroupID()
		tx.groups.put(g.ID, *g)
		return nil
	})
}

func (r *groupRepo) GetByID(dbc dbctx.Context, id uint64) (*alignment.Group, error) {
	if id == 0 {
		return nil, nil
	}
	var out *alignment.Group
	r.s.read(dbc, func(tx *memTx) {
		if v, ok := get(groupsOf(tx), r.s.groups, id); ok {
			out = &v
		}
	})
	return out, nil
}

// LockByID is GetByID: transactions are already serialized.
func (r *groupRepo) LockByID(dbc dbctx.Context, id uint64) (*alignment.Group, error) {
	return r.GetByID(dbc, id)
}

func (r *groupRepo) ListByMember(dbc dbctx.Context, userID uuid.UUID) ([]*alignment.Group, error) {
	out := []*alignment.Group{}
	if userID == uuid.Nil {
		return out, nil
	}
	r.s.read(dbc, func(tx *memTx) {
		each(membersOf(tx), r.s.members, func(k alignment.MemberKey, _ alignment.GroupMember) {
			if k.UserID != userID {
				return
			}
			if g, ok := get(groupsOf(tx), r.s.groups, k.GroupID); ok {
				out = append(out, &g)
			}
		})
	})
	sortGroups(out)
	return out, nil
}

func (r *groupRepo) ListEmptyCreatedBefore(dbc dbctx.Context, cutoff time.Time, limit int) ([]*alignment.Group, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []*alignment.Group{}
	r.s.read(dbc, func(tx *memTx) {
		occupied := map[uint64]bool{}
		each(membersOf(tx), r.s.members, func(k alignment.MemberKey, _ alignment.GroupMember) {
			occupied[k.GroupID] = true
		})
		each(groupsOf(tx), r.s.groups, func(id uint64, g alignment.Group) {
			if !occupied[id] && g.CreatedAt.Before(cutoff) {
				row := g
				out = append(out, &row)
			}
		})
	})
	sortGroups(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *groupRepo) DeleteByID(dbc dbctx.Context, id uint64) error {
	if id == 0 {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		tx.groups.del(id)
		return nil
	})
}

func sortGroups(gs []*alignment.Group) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.Before(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
}

// ---- group members ----

type groupMemberRepo struct{ s *Store }

func (r *groupMemberRepo) Create(dbc dbctx.Context, m *alignment.GroupMember) error {
	if m == nil {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		key := memberKey(m.GroupID, m.UserID)
		exists := false
		r.s.read(dbc, func(*memTx) {
			_, exists = get(tx.members, r.s.members, key)
		})
		if exists {
			return ErrDuplicateKey
		}
		if m.JoinedAt.IsZero() {
			m.JoinedAt = time.Now().UTC()
		}
		tx.members.put(key, *m)
		return nil
	})
}

func (r *groupMemberRepo) Get(dbc dbctx.Context, groupID uint64, userID uuid.UUID) (*alignment.GroupMember, error) {
	if groupID == 0 || userID == uuid.Nil {
		return nil, nil
	}
	var out *alignment.GroupMember
	r.s.read(dbc, func(tx *memTx) {
		if v, ok := get(membersOf(tx), r.s.members, memberKey(groupID, userID)); ok {
			out = &v
		}
	})
	return out, nil
}

func (r *groupMemberRepo) ListByGroup(dbc dbctx.Context, groupID uint64) ([]*alignment.GroupMember, error) {
	out := []*alignment.GroupMember{}
	if groupID == 0 {
		return out, nil
	}
	r.s.read(dbc, func(tx *memTx) {
		each(membersOf(tx), r.s.members, func(k alignment.MemberKey, v alignment.GroupMember) {
			if k.GroupID == groupID {
				row := v
				out = append(out, &row)
			}
		})
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

func (r *groupMemberRepo) CountByGroup(dbc dbctx.Context, groupID uint64) (int64, error) {
	rows, err := r.ListByGroup(dbc, groupID)
	return int64(len(rows)), err
}

// ---- survey documents ----

type surveyDocumentRepo struct{ s *Store }

func (r *surveyDocumentRepo) Create(dbc dbctx.Context, doc *alignment.SurveyDocument) error {
	if doc == nil {
		return nil
	}
	return r.s.write(dbc, func(tx *memTx) error {
		exists := false
		r.s.read(dbc, func(*memTx) {
			_, exists = get(tx.documents, r.s.documents, doc.Version)
		})
		if exists {
			return ErrDuplicateKey
		}
		row := *doc
		row.Document = append([]byte(nil), doc.Document...)
		tx.documents.put(doc.Version, row)
		return nil
	})
}

func (r *surveyDocumentRepo) GetByVersion(dbc dbctx.Context, version string) (*alignment.SurveyDocument, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, nil
	}
	var out *alignment.SurveyDocument
	r.s.read(dbc, func(tx *memTx) {
		if v, ok := get(documentsOf(tx), r.s.documents, version); ok {
			out = &v
		}
	})
	return out, nil
}

func (r *surveyDocumentRepo) List(dbc dbctx.Context) ([]*alignment.SurveyDocument, error) {
	out := []*alignment.SurveyDocument{}
	r.s.read(dbc, func(tx *memTx) {
		each(documentsOf(tx), r.s.documents, func(_ string, v alignment.SurveyDocument) {
			row := v
			out = append(out, &row)
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
