package alignment

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

func ResponseKey(userID uuid.UUID, version, questionID string) string {
	return fmt.Sprintf("User/%s/Response/%s:%s", userID, version, questionID)
}

func TopicScoreKey(userID uuid.UUID, version, topicID string) string {
	return fmt.Sprintf("User/%s/TopicScoreUser/%s:%s", userID, version, topicID)
}

func GroupKey(groupID uint64) string {
	return "Group/" + strconv.FormatUint(groupID, 10)
}

func GroupMemberKey(groupID uint64, userID uuid.UUID) string {
	return GroupKey(groupID) + "/GroupMember/" + userID.String()
}
