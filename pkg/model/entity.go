package model

// Kind tags the concrete type of an entity stored in the object cache.
type Kind string

const (
	KindUser    Kind = "user"
	KindChannel Kind = "channel"
	KindMessage Kind = "message"
)

// Entity is anything the object cache can hold. The cache is
// heterogeneous: a single store keeps users, channels and messages side
// by side, keyed by their globally unique IDs. Readers check the kind
// instead of downcasting blindly.
type Entity interface {
	EntityID() string
	EntityKind() Kind
}
