package alignment

import (
	"testing"

	"github.com/google/uuid"
)

func TestCompositeKeysAreDeterministic(t *testing.T) {
	uid := uuid.MustParse("7a4c1d2e-0000-4000-8000-000000000001")
	if got := ResponseKey(uid, "civic-2024", "q1"); got != "User/7a4c1d2e-0000-4000-8000-000000000001/Response/civic-2024:q1" {
		t.Fatalf("ResponseKey: got=%s", got)
	}
	if got := TopicScoreKey(uid, "civic-2024", "economy"); got != "User/7a4c1d2e-0000-4000-8000-000000000001/TopicScoreUser/civic-2024:economy" {
		t.Fatalf("TopicScoreKey: got=%s", got)
	}
	if got := GroupMemberKey(12, uid); got != "Group/12/GroupMember/7a4c1d2e-0000-4000-8000-000000000001" {
		t.Fatalf("GroupMemberKey: got=%s", got)
	}
	if ResponseKey(uid, "v", "q") != ResponseKey(uid, "v", "q") {
		t.Fatalf("ResponseKey not stable")
	}
}

func TestParseMergePolicy(t *testing.T) {
	cases := map[string]struct {
		want MergePolicy
		ok   bool
	}{
		"":       {MergeStored, true},
		"stored": {MergeStored, true},
		"batch":  {MergeBatch, true},
		"weird":  {MergeStored, false},
	}
	for in, tc := range cases {
		got, ok := ParseMergePolicy(in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseMergePolicy(%q): want=(%s,%v) got=(%s,%v)", in, tc.want, tc.ok, got, ok)
		}
	}
}
