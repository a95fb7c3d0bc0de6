package domain

// AlertKind selects the overlay alert shape.
type AlertKind string

const (
	AlertFollow        AlertKind = "follow"
	AlertCheer         AlertKind = "cheer"
	AlertRaid          AlertKind = "raid"
	AlertSub           AlertKind = "sub"
	AlertResub         AlertKind = "resub"
	AlertSubGift       AlertKind = "sub_gift"
	AlertCommunityGift AlertKind = "community_gift"
	AlertAnnouncement  AlertKind = "announcement"
)

// Alert is a single structured overlay alert. Only the fields relevant to
// the kind are populated.
type Alert struct {
	Kind          AlertKind `json:"kind"`
	BroadcasterID string    `json:"broadcaster_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	Tier          string    `json:"tier,omitempty"`
	Bits          int64     `json:"bits,omitempty"`
	Viewers       int64     `json:"viewers,omitempty"`
	GiftCount     int64     `json:"gift_count,omitempty"`
	Months        int64     `json:"months,omitempty"`
	Message       string    `json:"message,omitempty"`
}
