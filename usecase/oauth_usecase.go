package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/domain/repository"
	"social-ops/infrastructure/crypto"
	"social-ops/infrastructure/logger"
	"social-ops/infrastructure/utils"
)

var (
	ErrStateMismatch    = errors.New("oauth state does not match the browser session")
	ErrStateExpired     = errors.New("oauth state expired or already used")
	ErrSelectionExpired = errors.New("channel selection expired or already used")
)

// CallbackOutcome tells the frontend how the OAuth callback ended.
type CallbackOutcome string

const (
	OutcomeBound             CallbackOutcome = "bound"
	OutcomeNoChannel         CallbackOutcome = "no_channel"
	OutcomeSelectionRequired CallbackOutcome = "selection_required"
)

// CallbackResult is the outcome of one authorization callback. Handle and
// Channels are set only when a multi-channel selection is pending.
type CallbackResult struct {
	Outcome  CallbackOutcome      `json:"outcome"`
	Account  *model.SocialAccount `json:"account,omitempty"`
	Handle   string               `json:"handle,omitempty"`
	Channels []model.Channel      `json:"channels,omitempty"`
}

type IOAuthUsecase interface {
	// Authorize starts the flow: it binds a fresh anti-forgery state to the
	// user and returns the provider authorization URL plus the state for the
	// browser cookie.
	Authorize(ctx context.Context, userID string) (authURL, state string, err error)
	// HandleCallback validates state, exchanges the code and binds channels.
	// cookieState comes from the browser cookie set during Authorize.
	HandleCallback(ctx context.Context, state, code, cookieState string) (*CallbackResult, error)
	// ConfirmChannels finishes a pending multi-channel selection.
	ConfirmChannels(ctx context.Context, userID, handle string, req dto.ConfirmChannelsRequest) (*dto.ConfirmChannelsResponse, error)
	// PendingChannels lists the channels of a pending selection so the
	// frontend can render the picker after a redirect.
	PendingChannels(ctx context.Context, userID, handle string) ([]model.Channel, error)
}

type OAuthUsecase struct {
	accountRepository repository.ISocialAccount
	sessionStore      repository.IOAuthSession
	googleClient      repository.IGoogleOAuth
	cipher            *crypto.TokenCipher
	stateTTL          time.Duration
	selectionTTL      time.Duration
}

func NewOAuthUsecase(
	accountRepository repository.ISocialAccount,
	sessionStore repository.IOAuthSession,
	googleClient repository.IGoogleOAuth,
	cipher *crypto.TokenCipher,
	stateTTLMins, selectionTTLMins int,
) IOAuthUsecase {
	if stateTTLMins <= 0 {
		stateTTLMins = 5
	}
	if selectionTTLMins <= 0 {
		selectionTTLMins = 10
	}
	return &OAuthUsecase{
		accountRepository: accountRepository,
		sessionStore:      sessionStore,
		googleClient:      googleClient,
		cipher:            cipher,
		stateTTL:          time.Duration(stateTTLMins) * time.Minute,
		selectionTTL:      time.Duration(selectionTTLMins) * time.Minute,
	}
}

func (u *OAuthUsecase) Authorize(ctx context.Context, userID string) (string, string, error) {
	state := uuid.NewString()
	if err := u.sessionStore.SaveState(ctx, state, userID, u.stateTTL); err != nil {
		return "", "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return u.googleClient.AuthCodeURL(state), state, nil
}

func (u *OAuthUsecase) HandleCallback(ctx context.Context, state, code, cookieState string) (*CallbackResult, error) {
	if state == "" || cookieState == "" || state != cookieState {
		return nil, ErrStateMismatch
	}

	// The state is single-use; consuming it also recovers the user session
	// since the provider redirect carries no Authorization header.
	userID, err := u.sessionStore.ConsumeState(ctx, state)
	if err != nil {
		return nil, ErrStateExpired
	}

	bundle, err := u.googleClient.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	identity, err := u.googleClient.FetchIdentity(ctx, bundle.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("identity fetch failed: %w", err)
	}
	channels, err := u.googleClient.ListMyChannels(ctx, bundle.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("channel listing failed: %w", err)
	}

	switch len(channels) {
	case 0:
		// Identity without a channel: keep the binding so the user can
		// create a channel later and re-authorize.
		account, err := u.bindAccount(ctx, userID, identity, nil, bundle)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Outcome: OutcomeNoChannel, Account: account}, nil
	case 1:
		account, err := u.bindAccount(ctx, userID, identity, &channels[0], bundle)
		if err != nil {
			return nil, err
		}
		return &CallbackResult{Outcome: OutcomeBound, Account: account}, nil
	}

	// Several channels: park the tokens server-side and let the user pick.
	handle := uuid.NewString()
	sel := &repository.PendingSelection{
		UserID:       userID,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		TokenExpiry:  bundle.Expiry,
		Identity:     *identity,
		Channels:     channels,
	}
	if err := u.sessionStore.SaveSelection(ctx, handle, sel, u.selectionTTL); err != nil {
		return nil, fmt.Errorf("failed to save pending selection: %w", err)
	}
	logger.GetLogger().
		WithField("userId", userID).
		WithField("channels", len(channels)).
		Info("OAuth callback requires channel selection")
	return &CallbackResult{Outcome: OutcomeSelectionRequired, Handle: handle, Channels: channels}, nil
}

func (u *OAuthUsecase) PendingChannels(ctx context.Context, userID, handle string) ([]model.Channel, error) {
	sel, err := u.sessionStore.GetSelection(ctx, handle)
	if err != nil {
		return nil, ErrSelectionExpired
	}
	if sel.UserID != userID {
		return nil, ErrForbidden
	}
	return sel.Channels, nil
}

func (u *OAuthUsecase) ConfirmChannels(ctx context.Context, userID, handle string, req dto.ConfirmChannelsRequest) (*dto.ConfirmChannelsResponse, error) {
	sel, err := u.sessionStore.GetSelection(ctx, handle)
	if err != nil {
		return nil, ErrSelectionExpired
	}
	if sel.UserID != userID {
		return nil, ErrForbidden
	}

	byID := make(map[string]*model.Channel, len(sel.Channels))
	for i := range sel.Channels {
		byID[sel.Channels[i].ID] = &sel.Channels[i]
	}
	if len(req.ChannelIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one channel id is required", ErrInvalidInput)
	}
	for _, id := range req.ChannelIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: channel %s is not part of this authorization", ErrInvalidInput, id)
		}
	}

	bundle := &repository.TokenBundle{
		AccessToken:  sel.AccessToken,
		RefreshToken: sel.RefreshToken,
		Expiry:       sel.TokenExpiry,
	}
	res := &dto.ConfirmChannelsResponse{}

	if req.UpdatingAccountID != nil {
		// Refresh mode re-binds one existing account to one chosen channel.
		if len(req.ChannelIDs) != 1 {
			return nil, fmt.Errorf("%w: refresh mode accepts exactly one channel", ErrInvalidInput)
		}
		account, err := u.rebindAccount(ctx, userID, *req.UpdatingAccountID, &sel.Identity, byID[req.ChannelIDs[0]], bundle)
		if err != nil {
			return nil, err
		}
		res.Updated = 1
		res.AccountIDs = []string{account.ID}
	} else {
		for _, id := range req.ChannelIDs {
			account, err := u.bindAccount(ctx, userID, &sel.Identity, byID[id], bundle)
			if err != nil {
				return nil, err
			}
			res.Created++
			res.AccountIDs = append(res.AccountIDs, account.ID)
		}
	}

	if err := u.sessionStore.DeleteSelection(ctx, handle); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Error while deleting pending selection")
	}
	return res, nil
}

// bindAccount upserts an account for the identity, optionally bound to one
// channel. A nil channel stores an identity-only row with no account id.
func (u *OAuthUsecase) bindAccount(
	ctx context.Context,
	userID string,
	identity *model.GoogleIdentity,
	channel *model.Channel,
	bundle *repository.TokenBundle,
) (*model.SocialAccount, error) {
	encryptedAccess, err := u.cipher.Encrypt(bundle.AccessToken)
	if err != nil {
		return nil, err
	}
	var encryptedRefresh *string
	if bundle.RefreshToken != "" {
		v, err := u.cipher.Encrypt(bundle.RefreshToken)
		if err != nil {
			return nil, err
		}
		encryptedRefresh = &v
	}

	now := utils.GetCurrentTime()
	account := &model.SocialAccount{
		ID:              uuid.NewString(),
		UserID:          userID,
		Platform:        model.PlatformYouTube,
		AccountName:     identity.Name,
		AccessToken:     encryptedAccess,
		RefreshToken:    encryptedRefresh,
		TokenExpiry:     bundle.Expiry,
		Status:          model.AccountActive,
		GoogleAccountID: &identity.ID,
		GoogleEmail:     &identity.Email,
		GoogleName:      &identity.Name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if account.AccountName == "" {
		account.AccountName = identity.Email
	}
	if channel != nil {
		account.AccountID = &channel.ID
		account.AccountName = channel.Title
		account.ProfileURL = &channel.URL
		if channel.ThumbnailURL != "" {
			account.AvatarURL = &channel.ThumbnailURL
		}
		stats := model.ChannelStats{
			SubscriberCount: channel.SubscriberCount,
			VideoCount:      channel.VideoCount,
			ViewCount:       channel.ViewCount,
			FetchedAt:       now,
		}
		if blob, err := json.Marshal(stats); err == nil {
			metadata := string(blob)
			account.Metadata = &metadata
		}
	}

	return u.accountRepository.Upsert(ctx, account)
}

// rebindAccount updates an existing account in place with fresh tokens and
// the chosen channel.
func (u *OAuthUsecase) rebindAccount(
	ctx context.Context,
	userID, accountID string,
	identity *model.GoogleIdentity,
	channel *model.Channel,
	bundle *repository.TokenBundle,
) (*model.SocialAccount, error) {
	account, err := u.accountRepository.GetByID(ctx, accountID)
	if err != nil {
		return nil, ErrNotFound
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	encryptedAccess, err := u.cipher.Encrypt(bundle.AccessToken)
	if err != nil {
		return nil, err
	}
	account.AccessToken = encryptedAccess
	if bundle.RefreshToken != "" {
		v, err := u.cipher.Encrypt(bundle.RefreshToken)
		if err != nil {
			return nil, err
		}
		account.RefreshToken = &v
	}
	account.TokenExpiry = bundle.Expiry
	account.AccountID = &channel.ID
	account.AccountName = channel.Title
	account.ProfileURL = &channel.URL
	if channel.ThumbnailURL != "" {
		account.AvatarURL = &channel.ThumbnailURL
	}
	account.GoogleAccountID = &identity.ID
	account.GoogleEmail = &identity.Email
	account.GoogleName = &identity.Name
	account.Status = model.AccountActive
	account.UpdatedAt = utils.GetCurrentTime()

	stats := model.ChannelStats{
		SubscriberCount: channel.SubscriberCount,
		VideoCount:      channel.VideoCount,
		ViewCount:       channel.ViewCount,
		FetchedAt:       account.UpdatedAt,
	}
	if blob, err := json.Marshal(stats); err == nil {
		metadata := string(blob)
		account.Metadata = &metadata
	}

	if err := u.accountRepository.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
