package telegram

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deskrelay/backend/internal/models"
)

// Telegram caps forum topic names at 128 characters.
const topicNameLimit = 128

const closedNotice = "This conversation has been closed. Send a new message any time to start another one."

// Gateway implements relay.UserGateway and relay.Workspace over the Bot
// API: private chats on the user side, one forum supergroup on the agent
// side.
type Gateway struct {
	bot     *tgbotapi.BotAPI
	groupID int64
	log     *zap.Logger
}

func NewGateway(bot *tgbotapi.BotAPI, groupID int64, log *zap.Logger) *Gateway {
	return &Gateway{bot: bot, groupID: groupID, log: log}
}

// --- relay.UserGateway ---

func (g *Gateway) SendText(userID int64, text string) (int, error) {
	sent, err := g.bot.Send(tgbotapi.NewMessage(userID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) SendMedia(userID int64, kind, assetID, caption string) (int, error) {
	return g.sendMedia(userID, 0, kind, assetID, caption)
}

func (g *Gateway) NotifyClosed(userID int64) error {
	_, err := g.SendText(userID, closedNotice)
	return err
}

// --- relay.Workspace ---

func (g *Gateway) CreateSubchannel(name string) (int, error) {
	cfg := tgbotapi.CreateForumTopicConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: g.groupID},
		Name:       TruncateName(name, topicNameLimit),
	}
	resp, err := g.bot.Request(cfg)
	if err != nil {
		return 0, err
	}
	var topic tgbotapi.ForumTopic
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, err
	}
	return topic.MessageThreadID, nil
}

func (g *Gateway) PostAnchor(text string) (int, error) {
	sent, err := g.bot.Send(tgbotapi.NewMessage(g.groupID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) PostText(topicID int, text string) (int, error) {
	msg := tgbotapi.NewMessage(g.groupID, text)
	msg.MessageThreadID = topicID
	sent, err := g.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) PostMedia(topicID int, kind, assetID, caption string) (int, error) {
	return g.sendMedia(g.groupID, topicID, kind, assetID, caption)
}

func (g *Gateway) RenameSubchannel(topicID int, name string) error {
	cfg := tgbotapi.EditForumTopicConfig{
		BaseForum: tgbotapi.BaseForum{
			ChatConfig:      tgbotapi.ChatConfig{ChatID: g.groupID},
			MessageThreadID: topicID,
		},
		Name: TruncateName(name, topicNameLimit),
	}
	_, err := g.bot.Request(cfg)
	return err
}

func (g *Gateway) PostNotice(topicID int, text string) error {
	_, err := g.PostText(topicID, text)
	return err
}

func (g *Gateway) CloseSubchannel(topicID int) error {
	cfg := tgbotapi.CloseForumTopicConfig{
		BaseForum: tgbotapi.BaseForum{
			ChatConfig:      tgbotapi.ChatConfig{ChatID: g.groupID},
			MessageThreadID: topicID,
		},
	}
	_, err := g.bot.Request(cfg)
	return err
}

// sendMedia re-sends a file by its Telegram file id. topicID 0 means a
// plain chat (the user side). Unclassified kinds go out as documents
// when a handle exists, as caption text otherwise.
func (g *Gateway) sendMedia(chatID int64, topicID int, kind, assetID, caption string) (int, error) {
	var cfg tgbotapi.Chattable
	switch kind {
	case models.KindPhoto:
		m := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(assetID))
		m.Caption = caption
		m.MessageThreadID = topicID
		cfg = m
	case models.KindDocument:
		m := tgbotapi.NewDocument(chatID, tgbotapi.FileID(assetID))
		m.Caption = caption
		m.MessageThreadID = topicID
		cfg = m
	case models.KindVideo:
		m := tgbotapi.NewVideo(chatID, tgbotapi.FileID(assetID))
		m.Caption = caption
		m.MessageThreadID = topicID
		cfg = m
	case models.KindAudio:
		m := tgbotapi.NewAudio(chatID, tgbotapi.FileID(assetID))
		m.Caption = caption
		m.MessageThreadID = topicID
		cfg = m
	default:
		if assetID != "" {
			m := tgbotapi.NewDocument(chatID, tgbotapi.FileID(assetID))
			m.Caption = caption
			m.MessageThreadID = topicID
			cfg = m
		} else {
			m := tgbotapi.NewMessage(chatID, caption)
			m.MessageThreadID = topicID
			cfg = m
		}
	}
	sent, err := g.bot.Send(cfg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// TruncateName trims a topic name to limit runes, ellipsized.
func TruncateName(name string, limit int) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit-1]) + "…"
}
