package orchestrator

import (
	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/signaling"
)

// EventKind discriminates the variants the Orchestrator re-emits on its
// unified external event stream.
type EventKind string

const (
	EventPeerPresence       EventKind = "PeerPresence"
	EventChatMessage        EventKind = "ChatMessage"
	EventProfileUpdate      EventKind = "ProfileUpdate"
	EventGroupCreated       EventKind = "GroupCreated"
	EventGroupMemberAdded   EventKind = "GroupMemberAdded"
	EventGroupMemberRemoved EventKind = "GroupMemberRemoved"
	EventGroupChatMessage   EventKind = "GroupChatMessage"
	EventMeetingChat        EventKind = "MeetingChat"
	EventSignalingRaw       EventKind = "SignalingRaw"
)

// Event is a single item on the Orchestrator's unified event channel.
// Exactly one of Peer/Signaling is populated, matching Kind.
type Event struct {
	Kind      EventKind
	Peer      discovery.Event
	Signaling signaling.Event
}

const eventChannelCapacity = 256

// Events returns the channel external collaborators consume the unified
// event stream from. Closed when Run returns.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// MediaPort returns the local node's bound MediaServer HTTP port, for
// stamping AvatarFilePort on an outbound ProfileUpdate.
func (o *Orchestrator) MediaPort() int {
	return o.mediaPort
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}
