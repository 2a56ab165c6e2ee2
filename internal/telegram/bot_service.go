// Package telegram is the chat-transport adapter: it receives updates
// from the Bot API, reduces them to relay events, and hands them to the
// router and engine. It also serves the agents' inline admin buttons
// inside the workspace group.
package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deskrelay/backend/internal/models"
	"deskrelay/backend/internal/relay"
	"deskrelay/backend/internal/storage"
)

const (
	greeting = "Hello! Describe your question and an agent will get back to you right here."
	apology  = "Something went wrong on our side. Please try sending that again in a moment."
)

// BotService runs the long-polling update loop. One goroutine per
// update; no sequencing beyond what the router's per-user lock enforces.
type BotService struct {
	bot      *tgbotapi.BotAPI
	router   *relay.Router
	engine   *relay.Engine
	store    storage.Storage
	groupID  int64
	services map[string]string
	log      *zap.Logger
}

func NewBotService(bot *tgbotapi.BotAPI, router *relay.Router, engine *relay.Engine, store storage.Storage, groupID int64, services map[string]string, log *zap.Logger) *BotService {
	return &BotService{
		bot:      bot,
		router:   router,
		engine:   engine,
		store:    store,
		groupID:  groupID,
		services: services,
		log:      log,
	}
}

// Run blocks on the update channel until the bot is stopped.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)

	s.log.Info("telegram update loop started", zap.String("bot", s.bot.Self.UserName))
	for update := range updates {
		switch {
		case update.Message != nil:
			go s.handleMessage(update.Message)
		case update.CallbackQuery != nil:
			go s.handleCallback(update.CallbackQuery)
		}
	}
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	if msg.From != nil && msg.From.ID == s.bot.Self.ID {
		return
	}
	switch {
	case msg.Chat.ID == s.groupID:
		s.handleAgentMessage(msg)
	case msg.Chat.IsPrivate():
		s.handleUserMessage(msg)
	}
}

// --- user side ---

func (s *BotService) handleUserMessage(msg *tgbotapi.Message) {
	user := userFrom(msg.From)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.handleStart(user, msg)
		default:
			s.reply(msg.Chat.ID, greeting)
		}
		return
	}

	in, ok := extractInbound(msg)
	if !ok {
		s.reply(msg.Chat.ID, "That message type is not supported, sorry.")
		return
	}

	thread, err := s.router.ResolveUserThread(user)
	if err != nil {
		s.log.Error("thread resolution failed", zap.Int64("user_id", user.ID), zap.Error(err))
		s.reply(msg.Chat.ID, apology)
		return
	}
	if err := s.engine.RelayFromUser(user, thread, in); err != nil {
		s.log.Error("user relay failed",
			zap.Int64("user_id", user.ID), zap.Uint("thread_id", thread.ID), zap.Error(err))
		s.reply(msg.Chat.ID, apology)
	}
}

// handleStart greets the user and, for svc_<code> deep links, records
// the referral and parks the selection for the next thread.
func (s *BotService) handleStart(user *models.User, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if code, ok := strings.CutPrefix(arg, "svc_"); ok {
		if name, known := s.services[code]; known {
			sel := models.ServiceSelection{Code: code, Name: name, ClickedAt: time.Now()}
			if err := s.router.RecordReferral(user, sel); err != nil {
				s.log.Error("failed to record referral",
					zap.Int64("user_id", user.ID), zap.String("code", code), zap.Error(err))
			}
			s.reply(msg.Chat.ID, fmt.Sprintf("Hello! You are asking about %s. Describe your question and an agent will get back to you right here.", name))
			return
		}
		s.log.Warn("unknown service code in deep link", zap.String("code", code))
	}
	s.reply(msg.Chat.ID, greeting)
}

// --- agent side ---

func (s *BotService) handleAgentMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "threads":
			s.sendThreadList(msg.Chat.ID, msg.MessageThreadID)
		case "stats":
			s.sendStats(msg.Chat.ID, msg.MessageThreadID)
		}
		return
	}

	topicID := msg.MessageThreadID
	if topicID == 0 {
		// General-feed chatter between agents is none of our business.
		return
	}
	in, ok := extractInbound(msg)
	if !ok {
		return
	}

	thread, err := s.router.ResolveAgentMessage(topicID, in.Text)
	if err != nil {
		s.log.Error("agent message resolution failed", zap.Int("topic_id", topicID), zap.Error(err))
		return
	}
	if thread == nil {
		return
	}
	if err := s.engine.RelayFromAgent(thread, in); err != nil {
		s.log.Error("agent relay failed", zap.Uint("thread_id", thread.ID), zap.Error(err))
		s.postErrorCode(topicID, err)
	}
}

// postErrorCode leaves a terse marker in the topic. No internal detail;
// agents read logs for that.
func (s *BotService) postErrorCode(topicID int, err error) {
	code := "E_STORAGE"
	var terr *relay.TransportError
	if errors.As(err, &terr) {
		code = "E_TRANSPORT"
	}
	notice := tgbotapi.NewMessage(s.groupID, "⚠️ relay failed: "+code)
	notice.MessageThreadID = topicID
	if _, err := s.bot.Send(notice); err != nil {
		s.log.Warn("failed to post error code", zap.Int("topic_id", topicID), zap.Error(err))
	}
}

// --- admin buttons ---

func (s *BotService) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat.ID != s.groupID {
		return
	}
	// Acknowledge first so the button stops spinning.
	if _, err := s.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		s.log.Warn("callback ack failed", zap.Error(err))
	}

	topicID := cb.Message.MessageThreadID
	switch {
	case strings.HasPrefix(cb.Data, "view:"):
		if id, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "view:")); err == nil {
			s.sendThreadDetail(cb.Message.Chat.ID, topicID, uint(id))
		}
	case strings.HasPrefix(cb.Data, "close:"):
		id, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "close:"))
		if err != nil {
			return
		}
		if err := s.router.Close(uint(id)); err != nil {
			s.log.Error("close via button failed", zap.Int("thread_id", id), zap.Error(err))
			return
		}
		s.sendThreadList(cb.Message.Chat.ID, topicID)
	case cb.Data == "back":
		s.sendThreadList(cb.Message.Chat.ID, topicID)
	}
}

func (s *BotService) sendThreadList(chatID int64, topicID int) {
	threads, err := s.store.ListActiveThreads()
	if err != nil {
		s.log.Error("failed to list threads", zap.Error(err))
		return
	}
	if len(threads) == 0 {
		s.send(topicReply(chatID, topicID, "No active threads."))
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range threads {
		label := fmt.Sprintf("#%d · user %d", t.ID, t.UserID)
		if t.Service != "" {
			label += " · " + t.Service
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("view:%d", t.ID)),
		))
	}
	msg := topicReply(chatID, topicID, fmt.Sprintf("Active threads: %d", len(threads)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	s.send(msg)
}

func (s *BotService) sendThreadDetail(chatID int64, topicID int, threadID uint) {
	thread, err := s.store.GetThreadByID(threadID)
	if err != nil {
		s.log.Error("failed to load thread", zap.Uint("thread_id", threadID), zap.Error(err))
		return
	}
	msgs, err := s.store.GetThreadMessages(threadID, 5)
	if err != nil {
		s.log.Error("failed to load transcript", zap.Uint("thread_id", threadID), zap.Error(err))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thread #%d · user %d · %s\n", thread.ID, thread.UserID, thread.Status)
	if thread.Service != "" {
		fmt.Fprintf(&b, "Service: %s\n", thread.Service)
	}
	for _, m := range msgs {
		arrow := "→"
		if m.Direction == models.DirectionAgentToUser {
			arrow = "←"
		}
		fmt.Fprintf(&b, "%s %s\n", arrow, m.Text)
	}

	msg := topicReply(chatID, topicID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Close thread", fmt.Sprintf("close:%d", thread.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Back", "back"),
		),
	)
	s.send(msg)
}

func (s *BotService) sendStats(chatID int64, topicID int) {
	st, err := s.store.Stats()
	if err != nil {
		s.log.Error("failed to load stats", zap.Error(err))
		return
	}
	s.send(topicReply(chatID, topicID, fmt.Sprintf(
		"Users: %d\nActive threads: %d\nClosed threads: %d\nMessages: %d\nReferrals: %d",
		st.Users, st.ActiveThreads, st.ClosedThreads, st.Messages, st.Referrals,
	)))
}

func (s *BotService) reply(chatID int64, text string) {
	s.send(tgbotapi.NewMessage(chatID, text))
}

func (s *BotService) send(msg tgbotapi.MessageConfig) {
	if _, err := s.bot.Send(msg); err != nil {
		s.log.Warn("failed to send reply", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

// topicReply addresses a reply to the topic the request came from;
// topicID 0 targets the general feed.
func topicReply(chatID int64, topicID int, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.MessageThreadID = topicID
	return msg
}

// userFrom maps the transport identity onto the durable model.
func userFrom(from *tgbotapi.User) *models.User {
	if from == nil {
		return &models.User{}
	}
	return &models.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
	}
}

// extractInbound reduces a transport message to a relay event. Service
// messages (topic created, members joined) have none of these fields and
// come back as not-ok.
func extractInbound(msg *tgbotapi.Message) (relay.Inbound, bool) {
	in := relay.Inbound{MsgID: msg.MessageID}
	switch {
	case msg.Text != "":
		in.Kind = models.KindText
		in.Text = msg.Text
	case msg.Photo != nil:
		largest := msg.Photo[len(msg.Photo)-1]
		in.Kind = models.KindPhoto
		in.AssetID = largest.FileID
		in.Text = msg.Caption
	case msg.Document != nil:
		in.Kind = models.KindDocument
		in.AssetID = msg.Document.FileID
		in.Text = msg.Caption
	case msg.Video != nil:
		in.Kind = models.KindVideo
		in.AssetID = msg.Video.FileID
		in.Text = msg.Caption
	case msg.Voice != nil:
		in.Kind = models.KindAudio
		in.AssetID = msg.Voice.FileID
		in.Text = msg.Caption
	case msg.Audio != nil:
		in.Kind = models.KindAudio
		in.AssetID = msg.Audio.FileID
		in.Text = msg.Caption
	case msg.Sticker != nil:
		in.Kind = models.KindOther
		in.AssetID = msg.Sticker.FileID
		in.Text = msg.Caption
	case msg.Animation != nil:
		in.Kind = models.KindOther
		in.AssetID = msg.Animation.FileID
		in.Text = msg.Caption
	default:
		return relay.Inbound{}, false
	}
	return in, true
}
