package enums

import "fmt"

// CommandType maps to the server_command_type enum in Postgres.
type CommandType string

const (
	CommandTypeBroadcast  CommandType = "broadcast"
	CommandTypeSystemMail CommandType = "system_mail"
)

var validCommandTypes = []CommandType{
	CommandTypeBroadcast,
	CommandTypeSystemMail,
}

// IsValid reports whether the value is known.
func (t CommandType) IsValid() bool {
	for _, candidate := range validCommandTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCommandType converts raw input into a CommandType.
func ParseCommandType(value string) (CommandType, error) {
	for _, candidate := range validCommandTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid command type %q", value)
}

// CommandStatus maps to the server_command_status enum in Postgres.
type CommandStatus string

const (
	CommandStatusPending CommandStatus = "pending"
	CommandStatusSending CommandStatus = "sending"
	CommandStatusSent    CommandStatus = "sent"
	CommandStatusFailed  CommandStatus = "failed"
)

var validCommandStatuses = []CommandStatus{
	CommandStatusPending,
	CommandStatusSending,
	CommandStatusSent,
	CommandStatusFailed,
}

// IsValid reports whether the value is known.
func (s CommandStatus) IsValid() bool {
	for _, candidate := range validCommandStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
