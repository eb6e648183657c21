package alignment

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/commonground-backend/internal/data/repos/testutil"
	types "github.com/yungbote/commonground-backend/internal/domain/alignment"
)

func TestSurveyDocumentRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSurveyDocumentRepo(db, testutil.Logger(t))
	dbc := testutil.Ctx()

	doc := &types.SurveyDocument{
		Version:     "civic-2024",
		Title:       "Civic",
		Document:    datatypes.JSON([]byte(`{"version":"civic-2024"}`)),
		Checksum:    "abc",
		PublishedAt: time.Now().UTC(),
	}
	if err := repo.Create(dbc, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(dbc, doc); err == nil {
		t.Fatalf("expected duplicate version to fail")
	}

	got, err := repo.GetByVersion(dbc, " civic-2024 ")
	if err != nil || got == nil {
		t.Fatalf("GetByVersion: err=%v got=%v", err, got)
	}
	if got.Checksum != "abc" {
		t.Fatalf("checksum: want=abc got=%s", got.Checksum)
	}
	if got, err := repo.GetByVersion(dbc, "nope"); err != nil || got != nil {
		t.Fatalf("GetByVersion missing: err=%v got=%v", err, got)
	}

	list, err := repo.List(dbc)
	if err != nil || len(list) != 1 || list[0].Title != "Civic" {
		t.Fatalf("List: err=%v list=%+v", err, list)
	}
}
