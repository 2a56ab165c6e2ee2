package relay

// Inbound is one event handed to the engine: the content of a single
// transport message, already reduced to kind + text/caption + asset
// handle by the adapter.
type Inbound struct {
	Kind    string
	Text    string
	AssetID string
	// MsgID is the transport message id on the sending side.
	MsgID int
}

// UserGateway is the outbound path to an end-user's private chat.
// NotifyClosed is best-effort: the router discards its error.
type UserGateway interface {
	SendText(userID int64, text string) (msgID int, err error)
	SendMedia(userID int64, kind, assetID, caption string) (msgID int, err error)
	NotifyClosed(userID int64) error
}

// Workspace is the outbound path to the shared agent group.
// RenameSubchannel, PostNotice and CloseSubchannel are best-effort:
// callers log and discard their errors, the primary operation never
// depends on them.
type Workspace interface {
	// CreateSubchannel opens a forum topic and returns its id.
	CreateSubchannel(name string) (topicID int, err error)
	// PostAnchor posts into the group's general feed; the returned
	// message id doubles as a degenerate sub-channel id when topic
	// creation is unavailable.
	PostAnchor(text string) (msgID int, err error)
	PostText(topicID int, text string) (msgID int, err error)
	PostMedia(topicID int, kind, assetID, caption string) (msgID int, err error)
	RenameSubchannel(topicID int, name string) error
	PostNotice(topicID int, text string) error
	CloseSubchannel(topicID int) error
}
