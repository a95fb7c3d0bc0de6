package events

// Event payload shapes as delivered by the upstream platform. Handlers
// decode only the fields they consume; unknown fields are ignored.

type streamOnlineEvent struct {
	ID                  string `json:"id"`
	BroadcasterUserID   string `json:"broadcaster_user_id"`
	BroadcasterUserName string `json:"broadcaster_user_name"`
	Type                string `json:"type"`
	StartedAt           string `json:"started_at"`
}

type streamOfflineEvent struct {
	BroadcasterUserID   string `json:"broadcaster_user_id"`
	BroadcasterUserName string `json:"broadcaster_user_name"`
}

type followEvent struct {
	UserName          string `json:"user_name"`
	BroadcasterUserID string `json:"broadcaster_user_id"`
}

type cheerEvent struct {
	IsAnonymous       bool   `json:"is_anonymous"`
	UserName          string `json:"user_name"`
	BroadcasterUserID string `json:"broadcaster_user_id"`
	Message           string `json:"message"`
	Bits              int64  `json:"bits"`
}

type raidEvent struct {
	FromBroadcasterUserName string `json:"from_broadcaster_user_name"`
	ToBroadcasterUserID     string `json:"to_broadcaster_user_id"`
	Viewers                 int64  `json:"viewers"`
}

type subscribeEvent struct {
	UserName          string `json:"user_name"`
	BroadcasterUserID string `json:"broadcaster_user_id"`
	Tier              string `json:"tier"`
	IsGift            bool   `json:"is_gift"`
}

type subscriptionGiftEvent struct {
	UserName          string `json:"user_name"`
	BroadcasterUserID string `json:"broadcaster_user_id"`
	Total             int64  `json:"total"`
	Tier              string `json:"tier"`
	IsAnonymous       bool   `json:"is_anonymous"`
}

type chatNotificationEvent struct {
	BroadcasterUserID string `json:"broadcaster_user_id"`
	ChatterUserName   string `json:"chatter_user_name"`
	ChatterIsAnon     bool   `json:"chatter_is_anonymous"`
	NoticeType        string `json:"notice_type"`
	Message           struct {
		Text string `json:"text"`
	} `json:"message"`
	Sub *struct {
		SubTier        string `json:"sub_tier"`
		DurationMonths int64  `json:"duration_months"`
	} `json:"sub"`
	Resub *struct {
		SubTier          string `json:"sub_tier"`
		CumulativeMonths int64  `json:"cumulative_months"`
	} `json:"resub"`
	SubGift *struct {
		SubTier       string `json:"sub_tier"`
		RecipientName string `json:"recipient_user_name"`
	} `json:"sub_gift"`
	CommunitySubGift *struct {
		SubTier string `json:"sub_tier"`
		Total   int64  `json:"total"`
	} `json:"community_sub_gift"`
	Raid *struct {
		UserName    string `json:"user_name"`
		ViewerCount int64  `json:"viewer_count"`
	} `json:"raid"`
	Announcement *struct {
		Color string `json:"color"`
	} `json:"announcement"`
}

type channelUpdateEvent struct {
	BroadcasterUserID string `json:"broadcaster_user_id"`
	Title             string `json:"title"`
	CategoryID        string `json:"category_id"`
	CategoryName      string `json:"category_name"`
}
