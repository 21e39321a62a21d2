// Package orchestrator wires Discovery and Signaling events into Store
// mutations and re-emits a single unified event stream for external
// collaborators (the desktop shell, UI event handlers).
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/media"
	"github.com/pingonet/pingo-core/internal/signaling"
	"github.com/pingonet/pingo-core/internal/store"
)

// Orchestrator owns the two consumer loops described in spec.md §4.7: one
// per event source (Discovery, Signaling).
type Orchestrator struct {
	store     *store.Store
	discovery *discovery.Manager
	signaling *signaling.Manager
	media     *media.Store
	mediaPort int
	logger    *slog.Logger

	events chan Event
}

// New constructs an Orchestrator. mediaPort is the local node's bound
// MediaServer HTTP port. It is never used to resolve an incoming peer's
// avatar (the sender's own advertised port travels on the wire in
// ProfileUpdate.AvatarFilePort); it is exposed via MediaPort so an
// external collaborator composing this node's own outbound ProfileUpdate
// can stamp AvatarFilePort correctly.
func New(st *store.Store, disc *discovery.Manager, sig *signaling.Manager, mediaStore *media.Store, mediaPort int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     st,
		discovery: disc,
		signaling: sig,
		media:     mediaStore,
		mediaPort: mediaPort,
		logger:    logger.With(slog.String("component", "orchestrator")),
		events:    make(chan Event, eventChannelCapacity),
	}
}

// Run starts both consumer loops and blocks until both have returned:
// each loop returns when ctx is cancelled or its own source channel
// closes, so a single closed channel does not stop the other loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.consumeDiscovery(gCtx)
		return nil
	})
	g.Go(func() error {
		o.consumeSignaling(gCtx)
		return nil
	})

	err := g.Wait()
	close(o.events)
	return err
}

func (o *Orchestrator) consumeDiscovery(ctx context.Context) {
	events := o.discovery.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.handleDiscoveryEvent(ev)
		}
	}
}

// handleDiscoveryEvent implements spec.md §4.7 rule 1: upsert the user
// row, auto-register the peer's Signaling address, and re-emit.
func (o *Orchestrator) handleDiscoveryEvent(ev discovery.Event) {
	pubKey := sql.NullString{}
	if ev.Peer.PublicKey != "" {
		pubKey = sql.NullString{String: ev.Peer.PublicKey, Valid: true}
	}

	if ev.Kind == discovery.EventPeerLost {
		if err := o.store.SetUserOffline(ev.Peer.DeviceID); err != nil {
			o.logger.Warn("set user offline failed", slog.String("error", err.Error()))
		}
	} else {
		if err := o.store.UpsertPeerAsUser(ev.Peer.DeviceID, ev.Peer.Username, pubKey); err != nil {
			o.logger.Warn("upsert peer as user failed", slog.String("error", err.Error()))
			return
		}
		o.signaling.RegisterPeer(ev.Peer.DeviceID, ev.Peer.IP, ev.Peer.Port)
	}

	o.emit(Event{Kind: EventPeerPresence, Peer: ev})
}

func (o *Orchestrator) consumeSignaling(ctx context.Context) {
	events := o.signaling.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.handleSignalingEvent(ev)
		}
	}
}

func (o *Orchestrator) handleSignalingEvent(ev signaling.Event) {
	switch ev.Message.Type {
	case signaling.TypeChatMessage:
		o.handleChatMessage(ev)
	case signaling.TypeProfileUpdate:
		o.handleProfileUpdate(ev)
	case signaling.TypeGroupCreated:
		o.handleGroupCreated(ev)
	case signaling.TypeGroupMemberAdded:
		o.handleGroupMemberAdded(ev)
	case signaling.TypeGroupMemberRemoved:
		o.handleGroupMemberRemoved(ev)
	case signaling.TypeGroupChatMessage:
		o.handleGroupChatMessage(ev)
	case signaling.TypeMeetingChatMessage:
		o.emit(Event{Kind: EventMeetingChat, Signaling: ev})
	default:
		// Every other catalog variant (WebRTC negotiation, connection and
		// screen-share handshakes, file transfer negotiation, ping/pong)
		// is transport-only at this layer: forward it unmodified and let
		// the external collaborator decide.
		o.emit(Event{Kind: EventSignalingRaw, Signaling: ev})
	}
}

// handleChatMessage implements spec.md §4.7 rule 2.
func (o *Orchestrator) handleChatMessage(ev signaling.Event) {
	msg := ev.Message

	if err := o.store.UpsertPeerAsUser(msg.From, msg.From, sql.NullString{}); err != nil {
		o.logger.Warn("upsert sender failed", slog.String("error", err.Error()))
		return
	}

	record := store.Message{
		ID:          msg.MessageID,
		SenderID:    msg.From,
		ReceiverID:  msg.To,
		Content:     msg.Content,
		Type:        msg.ContentType,
		IsDelivered: true,
		CreatedAt:   msg.CreatedAt,
	}
	if record.Type == "" {
		record.Type = "text"
	}
	if err := o.store.CreateMessage(record); err != nil {
		o.logger.Warn("persist chat message failed", slog.String("error", err.Error()))
		return
	}

	o.emit(Event{Kind: EventChatMessage, Signaling: ev})

	ack := signaling.Message{Type: signaling.TypeDeliveryAck, From: msg.To, To: msg.From, MessageID: msg.MessageID}
	if err := o.signaling.SendMessage(ack); err != nil {
		o.logger.Debug("delivery ack send failed", slog.String("error", err.Error()))
	}
}

// handleProfileUpdate implements spec.md §4.7 rule 3, including the
// deferred `filemeta:<fid>:<port>` placeholder (scenario S4).
func (o *Orchestrator) handleProfileUpdate(ev signaling.Event) {
	msg := ev.Message

	if err := o.store.UpdateUsername(msg.From, msg.Username); err != nil {
		o.logger.Warn("update username failed", slog.String("error", err.Error()))
	}

	switch {
	case msg.AvatarURL != "":
		if err := o.store.SetUserAvatar(msg.From, msg.Username, msg.AvatarURL); err != nil {
			o.logger.Warn("set user avatar failed", slog.String("error", err.Error()))
		}
	case msg.AvatarFileID != "":
		url := fmt.Sprintf("filemeta:%s:%d", msg.AvatarFileID, msg.AvatarFilePort)
		if ev.FromIP != "" {
			url = fmt.Sprintf("http://%s:%d/file/%s", ev.FromIP, msg.AvatarFilePort, msg.AvatarFileID)
		}
		if err := o.store.SetUserAvatar(msg.From, msg.Username, url); err != nil {
			o.logger.Warn("set user avatar failed", slog.String("error", err.Error()))
		}
	}

	o.emit(Event{Kind: EventProfileUpdate, Signaling: ev})
}

func (o *Orchestrator) handleGroupCreated(ev signaling.Event) {
	msg := ev.Message
	if err := o.store.CreateGroup(msg.GroupID, msg.GroupName); err != nil {
		o.logger.Warn("mirror group created failed", slog.String("error", err.Error()))
		return
	}
	o.emit(Event{Kind: EventGroupCreated, Signaling: ev})
}

func (o *Orchestrator) handleGroupMemberAdded(ev signaling.Event) {
	msg := ev.Message
	if err := o.store.AddGroupMember(msg.GroupID, msg.MemberID, msg.MemberUsername, "member"); err != nil {
		o.logger.Warn("mirror group member added failed", slog.String("error", err.Error()))
		return
	}
	o.emit(Event{Kind: EventGroupMemberAdded, Signaling: ev})
}

func (o *Orchestrator) handleGroupMemberRemoved(ev signaling.Event) {
	msg := ev.Message
	if err := o.store.RemoveGroupMember(msg.GroupID, msg.MemberID); err != nil {
		o.logger.Warn("mirror group member removed failed", slog.String("error", err.Error()))
		return
	}
	o.emit(Event{Kind: EventGroupMemberRemoved, Signaling: ev})
}

// handleGroupChatMessage implements spec.md §4.7 rule 5.
func (o *Orchestrator) handleGroupChatMessage(ev signaling.Event) {
	msg := ev.Message

	if err := o.store.UpsertPeerAsUser(msg.From, msg.From, sql.NullString{}); err != nil {
		o.logger.Warn("upsert sender failed", slog.String("error", err.Error()))
		return
	}

	record := store.GroupMessage{
		ID:        msg.MessageID,
		GroupID:   msg.GroupID,
		SenderID:  msg.From,
		Content:   msg.Content,
		Type:      msg.ContentType,
		CreatedAt: msg.CreatedAt,
	}
	if record.Type == "" {
		record.Type = "text"
	}
	if err := o.store.CreateGroupMessage(record); err != nil {
		o.logger.Warn("persist group message failed", slog.String("error", err.Error()))
		return
	}

	o.emit(Event{Kind: EventGroupChatMessage, Signaling: ev})
}

// RelayChatMessage implements spec.md §4.7's relay_chat_message: attempt
// send, and on "peer not found" consult Discovery's peer table and
// register_peer before a single retry.
func (o *Orchestrator) RelayChatMessage(msg signaling.Message) error {
	err := o.signaling.SendMessage(msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, signaling.ErrPeerNotFound) {
		return fmt.Errorf("relay chat message: %w", err)
	}

	peer, ok := o.discovery.Peer(msg.To)
	if !ok {
		return fmt.Errorf("relay chat message: %w", err)
	}

	o.signaling.RegisterPeer(peer.DeviceID, peer.IP, peer.Port)
	if err := o.signaling.SendMessage(msg); err != nil {
		return fmt.Errorf("relay chat message after auto-register: %w", err)
	}
	return nil
}
