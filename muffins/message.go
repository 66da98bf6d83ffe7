package muffins

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var allowedRoles = []Role{RoleSystem, RoleUser, RoleAssistant}

func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", &ValidationError{Index: -1, Field: "role", Value: s, Allowed: allowedRoleNames()}
	}
	return r, nil
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) (Message, error) {
	m := Message{Role: role, Content: content}
	if err := m.validate(-1); err != nil {
		return Message{}, err
	}
	return m, nil
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ValidationError reports a message that cannot be sent. Index is the position
// in the request, or -1 for a standalone value.
type ValidationError struct {
	Index   int
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	var prefix string
	if e.Index >= 0 {
		prefix = fmt.Sprintf("message %d: ", e.Index)
	}
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%sinvalid message %s %q, must be one of: %s",
			prefix, e.Field, e.Value, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("%smessage %s is required", prefix, e.Field)
}

func (m Message) validate(index int) error {
	if m.Role == "" {
		return &ValidationError{Index: index, Field: "role"}
	}
	if !m.Role.IsValid() {
		return &ValidationError{Index: index, Field: "role", Value: string(m.Role), Allowed: allowedRoleNames()}
	}
	if strings.TrimSpace(m.Content) == "" {
		return &ValidationError{Index: index, Field: "content"}
	}
	return nil
}

// ValidateMessages checks a request's messages before anything is sent.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return ErrEmptyMessages
	}
	for i, m := range messages {
		if err := m.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func allowedRoleNames() []string {
	names := make([]string, len(allowedRoles))
	for i, r := range allowedRoles {
		names[i] = string(r)
	}
	return names
}
