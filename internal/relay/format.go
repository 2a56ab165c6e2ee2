package relay

import (
	"fmt"
	"strings"

	"deskrelay/backend/internal/models"
)

// ServiceTagPrefix opens every service banner and notice the bot writes.
// The noise guard keys off it.
const ServiceTagPrefix = "🏷"

func serviceTag(service string) string {
	return fmt.Sprintf("%s Service: %s", ServiceTagPrefix, service)
}

// kindLabel returns the human label attached to non-text payloads.
func kindLabel(kind string) string {
	switch kind {
	case models.KindPhoto:
		return "📷 Photo"
	case models.KindDocument:
		return "📄 Document"
	case models.KindVideo:
		return "🎬 Video"
	case models.KindAudio:
		return "🎧 Audio"
	default:
		return "📦 Attachment"
	}
}

// recordText is what goes into the transcript row: the text or caption
// when there is one, the kind label otherwise. Never empty.
func recordText(in Inbound) string {
	if in.Text != "" {
		return in.Text
	}
	return kindLabel(in.Kind)
}

// mediaCaption builds the caption for a forwarded media message:
// kind label, then the original caption if any.
func mediaCaption(in Inbound) string {
	if in.Text == "" {
		return kindLabel(in.Kind)
	}
	return kindLabel(in.Kind) + "\n" + in.Text
}

// attributionBanner is the first post of every thread: who is on the
// other end. Doubles as the anchor message.
func attributionBanner(user *models.User, service string) string {
	var b strings.Builder
	b.WriteString("New conversation\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", user.DisplayName()))
	if user.Username != "" {
		b.WriteString(fmt.Sprintf("Username: @%s\n", user.Username))
	}
	b.WriteString(fmt.Sprintf("ID: %d", user.ID))
	if service != "" {
		b.WriteString("\n" + serviceTag(service))
	}
	return b.String()
}

// topicTitle names the forum topic after the user. The transport adapter
// truncates to its own limit.
func topicTitle(user *models.User, service string) string {
	title := user.DisplayName()
	if title == "" {
		title = fmt.Sprintf("User %d", user.ID)
	}
	if service != "" {
		title = fmt.Sprintf("%s · %s", title, service)
	}
	return title
}
