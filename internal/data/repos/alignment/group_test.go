package alignment

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/commonground-backend/internal/data/repos/testutil"
	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
)

func TestGroupRepoCreateAssignsID(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGroupRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()

	g := &types.Group{OwnerUserID: uuid.New(), Nickname: "Book club", SurveyVersion: "v1", GroupCode: "ABCD2345"}
	if err := repo.Create(dbc, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}
	if g.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not set")
	}

	got, err := repo.GetByID(dbc, g.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.GroupCode != "ABCD2345" {
		t.Fatalf("group code: want=ABCD2345 got=%s", got.GroupCode)
	}
	locked, err := repo.LockByID(dbc, g.ID)
	if err != nil || locked == nil {
		t.Fatalf("LockByID: err=%v got=%v", err, locked)
	}
	missing, err := repo.GetByID(dbc, g.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("missing group: err=%v got=%v", err, missing)
	}
}

func TestGroupRepoRejectsDuplicateCode(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGroupRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()

	first := &types.Group{OwnerUserID: uuid.New(), Nickname: "a", SurveyVersion: "v1", GroupCode: "SAMECODE"}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := &types.Group{OwnerUserID: uuid.New(), Nickname: "b", SurveyVersion: "v1", GroupCode: "SAMECODE"}
	if err := repo.Create(dbc, second); err == nil {
		t.Fatalf("expected unique violation on group_code")
	}
}

func TestGroupRepoListEmptyCreatedBefore(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGroupRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()
	now := time.Now().UTC()

	oldEmpty := testutil.SeedGroup(t, db, uuid.New(), "OLDEMPTY", now.Add(-time.Hour))
	oldFull := testutil.SeedGroup(t, db, uuid.New(), "OLDFULL1", now.Add(-time.Hour))
	testutil.SeedMember(t, db, oldFull.ID, oldFull.OwnerUserID, types.RoleOwner)
	testutil.SeedGroup(t, db, uuid.New(), "NEWEMPTY", now)

	rows, err := repo.ListEmptyCreatedBefore(dbc, now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("ListEmptyCreatedBefore: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != oldEmpty.ID {
		t.Fatalf("want only old empty group, got %+v", rows)
	}

	if err := repo.DeleteByID(dbc, oldEmpty.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if g, _ := repo.GetByID(dbc, oldEmpty.ID); g != nil {
		t.Fatalf("group still present after delete")
	}
}

func TestGroupRepoListByMember(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGroupRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()
	user := uuid.New()

	g1 := testutil.SeedGroup(t, db, user, "GROUP001", time.Now().UTC().Add(-time.Minute))
	testutil.SeedMember(t, db, g1.ID, user, types.RoleOwner)
	g2 := testutil.SeedGroup(t, db, uuid.New(), "GROUP002", time.Now().UTC())
	testutil.SeedMember(t, db, g2.ID, user, types.RoleMember)
	testutil.SeedGroup(t, db, uuid.New(), "GROUP003", time.Now().UTC())

	rows, err := repo.ListByMember(dbc, user)
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != g1.ID || rows[1].ID != g2.ID {
		t.Fatalf("unexpected groups: %+v", rows)
	}
}

func TestGroupMemberRepo(t *testing.T) {
	db := testutil.DB(t)
	groups := NewGroupRepo(db, testutil.Logger(t))
	members := NewGroupMemberRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()
	owner := uuid.New()
	joiner := uuid.New()

	g := &types.Group{OwnerUserID: owner, Nickname: "n", SurveyVersion: "v1", GroupCode: "MEMBERS1"}
	if err := groups.Create(dbc, g); err != nil {
		t.Fatalf("Create group: %v", err)
	}
	if err := members.Create(dbc, &types.GroupMember{GroupID: g.ID, UserID: owner, Role: types.RoleOwner}); err != nil {
		t.Fatalf("Create owner: %v", err)
	}
	if err := members.Create(dbc, &types.GroupMember{GroupID: g.ID, UserID: joiner, Role: types.RoleMember, Alias: "J"}); err != nil {
		t.Fatalf("Create member: %v", err)
	}
	if err := members.Create(dbc, &types.GroupMember{GroupID: g.ID, UserID: joiner, Role: types.RoleMember}); err == nil {
		t.Fatalf("expected duplicate membership to fail")
	}

	m, err := members.Get(dbc, g.ID, joiner)
	if err != nil || m == nil || m.Alias != "J" {
		t.Fatalf("Get: err=%v m=%+v", err, m)
	}
	if m, err := members.Get(dbc, g.ID, uuid.New()); err != nil || m != nil {
		t.Fatalf("Get missing: err=%v m=%+v", err, m)
	}
	n, err := members.CountByGroup(dbc, g.ID)
	if err != nil || n != 2 {
		t.Fatalf("CountByGroup: err=%v n=%d", err, n)
	}
	list, err := members.ListByGroup(dbc, g.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByGroup: err=%v len=%d", err, len(list))
	}
}
