// Package chat implements the message pipeline shared by the REST handlers
// and the realtime gateway: persist, fan out, notify, and drive the bot.
package chat

import (
	"context"
	"errors"
	"time"

	"sparkchat/pkg/bot"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/models"
	"sparkchat/pkg/notify"
	"sparkchat/pkg/realtime"
	"sparkchat/pkg/social"
	"sparkchat/pkg/store"
)

var (
	// ErrForbidden is returned when the caller is not allowed to touch the
	// conversation (not a participant, or the mutual-follow gate failed).
	ErrForbidden = models.ErrForbidden
	// ErrNotFound is returned for unknown conversation ids.
	ErrNotFound = models.ErrNotFound
)

// Broadcaster fans an event out to a conversation room's subscribers.
type Broadcaster interface {
	BroadcastRoom(conversationID, event string, payload any)
}

// Service is the single write path for messages. Both the REST handlers and
// the gateway call it; only the broadcast flag differs.
type Service struct {
	Directory   social.Directory
	Broadcast   Broadcaster
	Notify      *notify.Notifier
	Responder   *bot.Responder
	TypingDelay time.Duration
}

// ConversationView pairs a conversation with the resolved profile of the
// other participant, for listing.
type ConversationView struct {
	models.Conversation
	Peer models.UserRef `json:"peer"`
}

// GetOrCreateConversation returns the unique conversation for the pair,
// creating it on first contact. Requester and target must be mutual
// followers.
func (s *Service) GetOrCreateConversation(ctx context.Context, requesterID, targetID string) (models.Conversation, bool, error) {
	if _, err := s.Directory.User(ctx, targetID); err != nil {
		if errors.Is(err, social.ErrUnknownUser) {
			return models.Conversation{}, false, ErrNotFound
		}
		return models.Conversation{}, false, err
	}
	mutual, err := s.Directory.MutualFollow(ctx, requesterID, targetID)
	if err != nil {
		return models.Conversation{}, false, err
	}
	if !mutual {
		return models.Conversation{}, false, ErrForbidden
	}
	return store.GetOrCreateConversation(requesterID, targetID)
}

// ListConversations returns the caller's conversations, newest first, with
// the other participant's profile resolved. Unresolvable peers are returned
// with a bare id rather than dropped.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	convs, err := store.ListConversationsFor(userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		peerID := c.Other(userID)
		peer, err := s.Directory.User(ctx, peerID)
		if err != nil {
			peer = models.UserRef{ID: peerID}
		}
		out = append(out, ConversationView{Conversation: c, Peer: peer})
	}
	return out, nil
}

// ListMessages returns a conversation's messages oldest first. The caller
// must be a participant.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID string) ([]models.Message, error) {
	conv, err := store.GetConversation(conversationID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !conv.Has(userID) {
		return nil, ErrForbidden
	}
	return store.ListMessages(conversationID)
}

// SendMessage persists a message and, when broadcast is set, fans it out to
// the room and schedules the bot reply if the conversation has a bot
// participant. The bot step never runs when persistence failed.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, text string, broadcast bool) (*models.Message, error) {
	conv, err := store.GetConversation(conversationID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !conv.Has(senderID) {
		return nil, ErrForbidden
	}

	msg := &models.Message{Conversation: conversationID, Sender: senderID, Text: text}
	if err := store.SaveMessage(msg); err != nil {
		return nil, err
	}

	if broadcast && s.Broadcast != nil {
		s.Broadcast.BroadcastRoom(conversationID, realtime.EvtMessageNew, msg)
	}

	// Activity for the other participant; suppression of self-actions is the
	// notifier's concern.
	if s.Notify != nil {
		refs := models.ActivityRefs{Conversation: conversationID, Message: msg.ID}
		if _, err := s.Notify.Record(ctx, conv.Other(senderID), senderID, models.ActivityMessage, refs); err != nil {
			logger.Warn("activity_record_failed", "conversation", conversationID, "error", err)
		}
	}

	if broadcast {
		s.maybeBotReply(ctx, conv, senderID, text)
	}
	return msg, nil
}

// maybeBotReply schedules a bot response when the other participant is the
// bot and the sender is not. The timer is fire and forget; a sender that
// disconnects before it fires still produces a reply for the room.
func (s *Service) maybeBotReply(ctx context.Context, conv models.Conversation, senderID, text string) {
	if s.Responder == nil || s.Directory == nil {
		return
	}
	peerID := conv.Other(senderID)
	if peerID == "" {
		return
	}
	peer, err := s.Directory.User(ctx, peerID)
	if err != nil || !peer.Bot {
		return
	}
	senderName := ""
	if sender, err := s.Directory.User(ctx, senderID); err == nil {
		// Guard against the bot replying to itself.
		if sender.Bot {
			return
		}
		senderName = sender.Name
	}

	delay := s.TypingDelay
	if delay <= 0 {
		delay = time.Second
	}

	go func() {
		reply := s.Responder.Reply(context.Background(), text, senderName)
		botMsg := &models.Message{Conversation: conv.ID, Sender: peerID, Text: reply}
		if err := store.SaveMessage(botMsg); err != nil {
			logger.Error("bot_reply_persist_failed", "conversation", conv.ID, "error", err)
			return
		}
		// Simulated typing: hold the broadcast briefly after persisting.
		time.Sleep(delay)
		if s.Broadcast != nil {
			s.Broadcast.BroadcastRoom(conv.ID, realtime.EvtMessageNew, botMsg)
		}
	}()
}

// MarkSeen flips the listed messages to seen and, when broadcast is set,
// emits the receipt to the room. Returns the ids that actually changed.
func (s *Service) MarkSeen(ctx context.Context, conversationID, userID string, messageIDs []string, broadcast bool) ([]string, error) {
	conv, err := store.GetConversation(conversationID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !conv.Has(userID) {
		return nil, ErrForbidden
	}
	flipped, err := store.MarkSeen(messageIDs)
	if err != nil {
		return nil, err
	}
	if broadcast && s.Broadcast != nil && len(flipped) > 0 {
		s.Broadcast.BroadcastRoom(conversationID, realtime.EvtMessageSeen, realtime.SeenEvent{
			ConversationID: conversationID,
			MessageIDs:     flipped,
		})
	}
	return flipped, nil
}
