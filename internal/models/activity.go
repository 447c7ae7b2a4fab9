package models

import "time"

// ActivityType classifies one remote change event. The values are ordered
// so activity tables can sort by type without a custom comparator.
type ActivityType int

const (
	ActivityCreate ActivityType = iota
	ActivityDelete
	ActivityEdit
	ActivityMove
	ActivityRename
	ActivityRestore
	ActivityUnknown
)

func (t ActivityType) String() string {
	switch t {
	case ActivityCreate:
		return "Create"
	case ActivityDelete:
		return "Delete"
	case ActivityEdit:
		return "Edit"
	case ActivityMove:
		return "Move"
	case ActivityRename:
		return "Rename"
	case ActivityRestore:
		return "Restore"
	default:
		return "Unknown"
	}
}

// ActivityEntry is the display-ready projection of one remote change event.
// FileID is empty when the file was permanently deleted; in that case Size
// is -1 because the remote no longer reports one.
type ActivityEntry struct {
	Type         ActivityType `json:"type"`
	FileID       string       `json:"fileId,omitempty"`
	RelativePath string       `json:"relativePath"`
	Username     string       `json:"username"`
	IsFolder     bool         `json:"isFolder"`
	Size         int64        `json:"size"`
	Time         time.Time    `json:"time"`
}

func (e *ActivityEntry) String() string {
	return e.Type.String() + " " + e.RelativePath
}

// ActivityEvent is the wire shape of one raw event from the activity API,
// before projection through the cache.
type ActivityEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	ActorUserID  string    `json:"actorUserId,omitempty"`
	Action       string    `json:"action"` // create, edit, rename, move, delete, restore
	TargetID     string    `json:"targetId"`
	TargetTitle  string    `json:"targetTitle"`
	TargetFolder bool      `json:"targetIsFolder"`

	// MovedToTitle is the display name of the parent the item was moved
	// into, when the event is a move. Used as a breadcrumb fallback for
	// targets that no longer exist.
	MovedToTitle string `json:"movedToTitle,omitempty"`
}

// ParseActivityType maps a raw action string to an ActivityType.
func ParseActivityType(action string) ActivityType {
	switch action {
	case "create":
		return ActivityCreate
	case "delete":
		return ActivityDelete
	case "edit":
		return ActivityEdit
	case "move":
		return ActivityMove
	case "rename":
		return ActivityRename
	case "restore":
		return ActivityRestore
	default:
		return ActivityUnknown
	}
}
