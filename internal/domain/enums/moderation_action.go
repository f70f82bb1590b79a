package enums

import "fmt"

type ModerationAction string

const (
	ModerationActionApprove ModerationAction = "approve"
	ModerationActionReject  ModerationAction = "reject"
	ModerationActionFlag    ModerationAction = "flag"
)

func ParseModerationAction(value string) (ModerationAction, error) {
	switch ModerationAction(value) {
	case ModerationActionApprove, ModerationActionReject, ModerationActionFlag:
		return ModerationAction(value), nil
	}
	return "", fmt.Errorf("unknown moderation action %q", value)
}
