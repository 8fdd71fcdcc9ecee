package dto

// CreateAccountRequest creates a social account by manual entry.
type CreateAccountRequest struct {
	Platform     string  `json:"platform" binding:"required"`
	AccountID    *string `json:"account_id,omitempty"`
	AccountName  string  `json:"account_name" binding:"required"`
	ProfileURL   *string `json:"profile_url,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	AccessToken  string  `json:"access_token,omitempty"`
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// UpdateAccountRequest applies a partial update; only provided fields change.
type UpdateAccountRequest struct {
	AccountName  *string `json:"account_name,omitempty"`
	ProfileURL   *string `json:"profile_url,omitempty"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	AccessToken  *string `json:"access_token,omitempty"`
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// ConfirmChannelsRequest finishes a multi-channel OAuth binding.
// UpdatingAccountID switches the flow into refresh mode, which accepts
// exactly one channel id.
type ConfirmChannelsRequest struct {
	ChannelIDs        []string `json:"channelIds" binding:"required"`
	UpdatingAccountID *string  `json:"updatingAccountId,omitempty"`
}

// ConfirmChannelsResponse reports the accounts created or updated.
type ConfirmChannelsResponse struct {
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	AccountIDs []string `json:"accountIds"`
}
