package relay

import "strings"

// Prefixes the bot itself writes into topics. Agent posts starting with
// one of these are echoes or status chatter, not replies to forward, and
// relaying them back would loop.
var noisePrefixes = []string{
	ServiceTagPrefix, // service banner / "service selected" notice
	"✓",              // delivery confirmations
	"✅",
	"🚫", // close notices
	"⚠️", // error codes posted for agents
}

// IsNoise reports whether an agent-channel text is non-relayable bot
// chatter.
func IsNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range noisePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
