package domain

import (
	"context"
	"time"
)

// --- Model types ---

type User struct {
	ID       string // Twitch user ID, also the broadcaster ID
	Username string
	// Tokens are kept in User struct for simplicity: user and tokens have
	// identical lifecycle and there is no use case for one without the other.
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	// InviteLink is the broadcaster's custom community invite link; empty
	// means the configured fallback link is used.
	InviteLink string
	// FallbackLabels are the content classification labels applied when the
	// current game has no library entry of its own.
	FallbackLabels []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Counters are the per-broadcaster running tallies shown on the overlay.
// BitsThisStream is session-scoped and zeroed on every stream start; the
// remaining tallies are cumulative per game.
type Counters struct {
	BroadcasterID  string
	GameID         string
	GameName       string
	Follows        int64
	Subs           int64
	GiftedSubs     int64
	BitsThisStream int64
	BitsTotal      int64
	StreamStarted  *time.Time
	UpdatedAt      time.Time
}

// GameSnapshot is a saved copy of the cumulative tallies for one game,
// so different games keep independent counts across category switches.
type GameSnapshot struct {
	BroadcasterID string
	GameID        string
	GameName      string
	Follows       int64
	Subs          int64
	GiftedSubs    int64
	BitsTotal     int64
	SavedAt       time.Time
}

// GameEntry is a game-library record carrying the content classification
// labels configured for a game.
type GameEntry struct {
	BroadcasterID string
	GameID        string
	GameName      string
	Labels        []string
	UpdatedAt     time.Time
}

// StreamInfo is live-stream metadata from the upstream "get streams" call.
type StreamInfo struct {
	Title        string
	GameID       string
	GameName     string
	ViewerCount  int
	StartedAt    time.Time
	ThumbnailURL string
}

// ChannelInfo is static channel metadata, the enrichment fallback when the
// stream lookup fails or returns nothing.
type ChannelInfo struct {
	BroadcasterName string
	Title           string
	GameID          string
	GameName        string
}

// StreamAnnouncement is the payload handed to the outbound notifier when a
// stream goes online. Fields beyond the broadcaster ID are best-effort.
type StreamAnnouncement struct {
	BroadcasterID   string
	BroadcasterName string
	Title           string
	GameName        string
	ViewerCount     int
	StartedAt       time.Time
	ThumbnailURL    string
}

// NotificationRecord is the last outbound-notification attempt for a
// broadcaster. Last write wins.
type NotificationRecord struct {
	At      time.Time
	Success bool
}

// MonitoringState caches a broadcaster's resolved delivery channel so
// eligibility is not re-checked on every send.
type MonitoringState struct {
	UseBotChannel bool
	BotUserID     string
	ObservedAt    time.Time
}

// BotEligibility is the result of a delivery-channel eligibility check.
// CanDeliver false means the broadcaster cannot be messaged at all.
type BotEligibility struct {
	CanDeliver    bool
	UseBotChannel bool
	BotUserID     string
}

// --- Repositories ---

type UserRepository interface {
	GetByID(ctx context.Context, broadcasterID string) (*User, error)
	UpdateTokens(ctx context.Context, broadcasterID, accessToken, refreshToken string, tokenExpiry time.Time) error
}

type CounterRepository interface {
	GetByBroadcaster(ctx context.Context, broadcasterID string) (*Counters, error)
	Save(ctx context.Context, counters *Counters) error
	GetGameSnapshot(ctx context.Context, broadcasterID, gameID string) (*GameSnapshot, error)
	SaveGameSnapshot(ctx context.Context, snapshot *GameSnapshot) error
}

type GameLibraryRepository interface {
	Get(ctx context.Context, broadcasterID, gameID string) (*GameEntry, error)
	Upsert(ctx context.Context, entry *GameEntry) error
}

// ClaimRepository is the durable first-writer-wins marker used to suppress
// duplicate side effects from at-least-once event delivery. Claim returns
// true iff this call won the key; it must be atomic across processes.
type ClaimRepository interface {
	Claim(ctx context.Context, broadcasterID, key string) (bool, error)
}

// --- Upstream platform ---

type StreamAPI interface {
	// GetStream returns live metadata, or ErrStreamNotLive when the
	// broadcaster has no active stream.
	GetStream(ctx context.Context, broadcasterID string) (*StreamInfo, error)
	GetChannelInfo(ctx context.Context, broadcasterID string) (*ChannelInfo, error)
	// ApplyContentLabels replaces the channel's content classification labels.
	ApplyContentLabels(ctx context.Context, broadcasterID string, labels []string) error
}

type ChatSender interface {
	// SendChatMessage posts text into the broadcaster's chat as senderID.
	SendChatMessage(ctx context.Context, broadcasterID, senderID, text string) error
}

// EligibilityChecker resolves which delivery channel a broadcaster supports.
// It needs the user's access credential, so an unknown or revoked user is
// simply not eligible.
type EligibilityChecker interface {
	Check(ctx context.Context, user *User, broadcasterID string) (BotEligibility, error)
}

// --- Outbound sinks ---

// OverlaySink delivers state changes and alerts to connected overlay clients.
type OverlaySink interface {
	NotifyStreamStarted(ctx context.Context, counters *Counters) error
	NotifyStreamEnded(ctx context.Context, broadcasterID string) error
	NotifyAlert(ctx context.Context, alert Alert) error
}

// StreamNotifier delivers the best-effort "stream went online" notification
// to the external messaging webhook.
type StreamNotifier interface {
	NotifyStreamOnline(ctx context.Context, ann StreamAnnouncement) error
}
