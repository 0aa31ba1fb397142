package model

// ChannelKind classifies a conversation. Anything the server sends that
// is not a direct message or a group decodes as ChannelOther.
type ChannelKind string

const (
	ChannelDirect ChannelKind = "DirectMessage"
	ChannelGroup  ChannelKind = "Group"
	ChannelOther  ChannelKind = "Other"
)

// Channel is a conversation: a direct message, a group, or some other
// server-defined container. Recipients is the participant set; it only
// changes through explicit membership events, never locally.
type Channel struct {
	ID            string   `json:"_id"`
	Type          string   `json:"channel_type"`
	Name          string   `json:"name,omitempty"`
	Recipients    []string `json:"recipients,omitempty"`
	Active        bool     `json:"active,omitempty"`
	LastMessageID string   `json:"last_message_id,omitempty"`
}

func (c *Channel) EntityID() string { return c.ID }

func (c *Channel) EntityKind() Kind { return KindChannel }

// Kind maps the wire channel_type onto the three kinds the client
// distinguishes.
func (c *Channel) Kind() ChannelKind {
	switch ChannelKind(c.Type) {
	case ChannelDirect:
		return ChannelDirect
	case ChannelGroup:
		return ChannelGroup
	default:
		return ChannelOther
	}
}

// HasRecipient reports whether the given user participates in the
// channel.
func (c *Channel) HasRecipient(userID string) bool {
	for _, id := range c.Recipients {
		if id == userID {
			return true
		}
	}
	return false
}
