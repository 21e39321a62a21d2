package signaling

// MessageType discriminates the fixed catalog of Signaling wire messages
// (spec.md §4.4/§6). Every variant carries From/To device ids.
type MessageType string

const (
	TypeOffer        MessageType = "Offer"
	TypeAnswer       MessageType = "Answer"
	TypeIceCandidate MessageType = "IceCandidate"

	TypeConnectionRequest  MessageType = "ConnectionRequest"
	TypeConnectionAccepted MessageType = "ConnectionAccepted"
	TypeConnectionRejected MessageType = "ConnectionRejected"

	TypeScreenShareInvite   MessageType = "ScreenShareInvite"
	TypeScreenShareResponse MessageType = "ScreenShareResponse"
	TypeScreenShareEnded    MessageType = "ScreenShareEnded"

	TypeFileTransferRequest  MessageType = "FileTransferRequest"
	TypeFileTransferResponse MessageType = "FileTransferResponse"

	TypePing MessageType = "Ping"
	TypePong MessageType = "Pong"

	TypeChatMessage MessageType = "ChatMessage"
	TypeDeliveryAck MessageType = "DeliveryAck"

	TypeProfileUpdate MessageType = "ProfileUpdate"

	TypeGroupCreated       MessageType = "GroupCreated"
	TypeGroupChatMessage   MessageType = "GroupChatMessage"
	TypeGroupMemberAdded   MessageType = "GroupMemberAdded"
	TypeGroupMemberRemoved MessageType = "GroupMemberRemoved"

	TypeMeetingChatMessage MessageType = "MeetingChatMessage"

	TypeMeetingInvite         MessageType = "MeetingInvite"
	TypeMeetingInviteResponse MessageType = "MeetingInviteResponse"
	TypeMeetingOffer          MessageType = "MeetingOffer"
	TypeMeetingAnswer         MessageType = "MeetingAnswer"
	TypeMeetingIceCandidate   MessageType = "MeetingIceCandidate"
	TypeMeetingChat           MessageType = "MeetingChat"
	TypeMeetingLeave          MessageType = "MeetingLeave"
	TypeMeetingEnded          MessageType = "MeetingEnded"
	TypeMeetingScreenShare       MessageType = "MeetingScreenShare"
	TypeMeetingScreenShareInvite MessageType = "MeetingScreenShareInvite"
	TypeMeetingRejoinRequest     MessageType = "MeetingRejoinRequest"
	TypeMeetingParticipantList   MessageType = "MeetingParticipantList"
)

// knownTypes is the fixed enumerated catalog; anything else is an unknown
// variant and is dropped by the listener (spec.md §7 protocol errors).
var knownTypes = map[MessageType]bool{
	TypeOffer: true, TypeAnswer: true, TypeIceCandidate: true,
	TypeConnectionRequest: true, TypeConnectionAccepted: true, TypeConnectionRejected: true,
	TypeScreenShareInvite: true, TypeScreenShareResponse: true, TypeScreenShareEnded: true,
	TypeFileTransferRequest: true, TypeFileTransferResponse: true,
	TypePing: true, TypePong: true,
	TypeChatMessage: true, TypeDeliveryAck: true,
	TypeProfileUpdate: true,
	TypeGroupCreated: true, TypeGroupChatMessage: true,
	TypeGroupMemberAdded: true, TypeGroupMemberRemoved: true,
	TypeMeetingChatMessage: true,
	TypeMeetingInvite: true, TypeMeetingInviteResponse: true,
	TypeMeetingOffer: true, TypeMeetingAnswer: true, TypeMeetingIceCandidate: true,
	TypeMeetingChat: true, TypeMeetingLeave: true, TypeMeetingEnded: true,
	TypeMeetingScreenShare: true, TypeMeetingScreenShareInvite: true,
	TypeMeetingRejoinRequest: true, TypeMeetingParticipantList: true,
}

// Message is the flat tagged-union envelope for every Signaling variant.
// Go has no native sum type, so the catalog is expressed as one wire
// struct with per-variant fields marked omitempty, discriminated by Type.
type Message struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
	To   string      `json:"to"`

	// WebRTC-style negotiation: Offer/Answer/IceCandidate and their
	// Meeting-prefixed counterparts.
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`

	// Connection/screen-share/meeting request-response pairs.
	Accepted bool   `json:"accepted,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// File transfer negotiation (distinct from the Transfers chunk protocol).
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	// Chat and delivery acknowledgement.
	MessageID   string `json:"message_id,omitempty"`
	Content     string `json:"content,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`

	// Profile updates.
	Username       string `json:"username,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	AvatarFileID   string `json:"avatar_file_id,omitempty"`
	AvatarFilePort int    `json:"avatar_file_port,omitempty"`

	// Group membership and group/meeting chat.
	GroupID        string `json:"group_id,omitempty"`
	GroupName      string `json:"group_name,omitempty"`
	MemberID       string `json:"member_id,omitempty"`
	MemberUsername string `json:"member_username,omitempty"`

	// Meeting negotiation.
	MeetingID   string   `json:"meeting_id,omitempty"`
	Participants []string `json:"participants,omitempty"`
}
