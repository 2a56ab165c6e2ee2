package relay

import (
	"go.uber.org/zap"

	"deskrelay/backend/internal/models"
	"deskrelay/backend/internal/storage"
)

// Engine forwards content between the two sides with the contextual
// prefixes the thread's state calls for, then records the transcript.
// Per inbound event it issues exactly one outbound send and one
// transcript append; it never batches, reorders or retries.
type Engine struct {
	store    storage.Storage
	sessions storage.Sessions
	users    UserGateway
	ws       Workspace
	log      *zap.Logger
}

func NewEngine(store storage.Storage, sessions storage.Sessions, users UserGateway, ws Workspace, log *zap.Logger) *Engine {
	return &Engine{store: store, sessions: sessions, users: users, ws: ws, log: log}
}

// RelayFromUser forwards one user message into the thread's topic.
// The one-time service tag rides on the first message sent while the
// thread has a service and the first-tagged flag is still down. The
// flag is claimed in storage before the send, so two concurrent
// messages holding snapshots of the same thread cannot both carry the
// tag; a send failure after a won claim consumes the tag, matching the
// at-most-once relay. A failed send persists no transcript row: the
// user's own copy still exists on their side, only the relay attempt
// is lost.
func (e *Engine) RelayFromUser(user *models.User, thread *models.Thread, in Inbound) error {
	topicID := *thread.TopicID

	tagged := false
	if thread.WantsTag() {
		won, err := e.store.ClaimFirstTag(thread.ID)
		if err != nil {
			return err
		}
		tagged = won
	}

	var destID int
	var err error
	if in.Kind == models.KindText {
		body := in.Text
		if tagged {
			body = serviceTag(thread.Service) + "\n\n" + body
		}
		destID, err = e.ws.PostText(topicID, body)
	} else {
		caption := mediaCaption(in)
		if tagged {
			caption = serviceTag(thread.Service) + "\n" + caption
		}
		destID, err = e.ws.PostMedia(topicID, in.Kind, in.AssetID, caption)
	}
	if err != nil {
		return transportErr("forward to workspace", err)
	}

	if tagged {
		thread.FirstTagged = true
		if err := e.sessions.ClearPendingService(user.ID); err != nil {
			e.log.Warn("failed to clear session entry", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	srcID := in.MsgID
	msg := &models.Message{
		ThreadID:  thread.ID,
		UserID:    user.ID,
		Direction: models.DirectionUserToAgent,
		Kind:      in.Kind,
		Text:      recordText(in),
		AssetID:   in.AssetID,
		SrcMsgID:  &srcID,
		DestMsgID: &destID,
	}
	if err := e.store.AppendMessage(msg); err != nil {
		return err
	}
	e.publish(msg)
	return nil
}

// RelayFromAgent forwards one agent post back to the thread's user.
// The mirror of the one-time tag keys off the count of prior
// agent_to_user rows rather than a stored flag. The delivery notice back
// into the topic is cosmetic: its failure never fails the relay, which
// already succeeded.
func (e *Engine) RelayFromAgent(thread *models.Thread, in Inbound) error {
	count, err := e.store.CountAgentMessages(thread.ID)
	if err != nil {
		return err
	}
	banner := thread.Service != "" && count == 0

	var destID int
	if in.Kind == models.KindText {
		body := in.Text
		if banner {
			body = serviceTag(thread.Service) + "\n\n" + body
		}
		destID, err = e.users.SendText(thread.UserID, body)
	} else {
		caption := mediaCaption(in)
		if banner {
			caption = serviceTag(thread.Service) + "\n" + caption
		}
		destID, err = e.users.SendMedia(thread.UserID, in.Kind, in.AssetID, caption)
	}
	if err != nil {
		return transportErr("forward to user", err)
	}

	srcID := in.MsgID
	msg := &models.Message{
		ThreadID:  thread.ID,
		UserID:    thread.UserID,
		Direction: models.DirectionAgentToUser,
		Kind:      in.Kind,
		Text:      recordText(in),
		AssetID:   in.AssetID,
		SrcMsgID:  &srcID,
		DestMsgID: &destID,
	}
	if err := e.store.AppendMessage(msg); err != nil {
		return err
	}
	e.publish(msg)

	if thread.TopicID != nil {
		if err := e.ws.PostNotice(*thread.TopicID, "✓ delivered"); err != nil {
			e.log.Debug("delivery notice failed", zap.Uint("thread_id", thread.ID), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) publish(msg *models.Message) {
	if err := e.store.PublishTranscript(msg); err != nil {
		e.log.Warn("transcript publish failed", zap.Uint("message_id", msg.ID), zap.Error(err))
	}
}
