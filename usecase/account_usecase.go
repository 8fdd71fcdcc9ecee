package usecase

import (
	"context"
	"database/sql"
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
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("resource belongs to another user")
	// ErrInvalidInput marks domain validation failures so handlers can map
	// them to a client error instead of a server one.
	ErrInvalidInput = errors.New("invalid request")
)

type IAccountUsecase interface {
	Create(ctx context.Context, userID string, req dto.CreateAccountRequest) (*model.SocialAccount, error)
	Get(ctx context.Context, userID, accountID string) (*model.SocialAccount, error)
	List(ctx context.Context, userID string, platform string, activeOnly bool) ([]*model.SocialAccount, error)
	Update(ctx context.Context, userID, accountID string, req dto.UpdateAccountRequest) (*model.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID string) error
	// ToggleStatus flips ACTIVE <-> DISABLED. EXPIRED and PENDING accounts
	// cannot be toggled; re-authorization is the only way out.
	ToggleStatus(ctx context.Context, userID, accountID string) (*model.SocialAccount, error)
	// RefreshToken forces a token refresh regardless of remaining lifetime.
	RefreshToken(ctx context.Context, userID, accountID string) (*model.SocialAccount, error)
	// RefreshChannel re-fetches YouTube channel info and stores a fresh
	// stats snapshot in the account metadata.
	RefreshChannel(ctx context.Context, userID, accountID string) (*model.SocialAccount, error)
}

type AccountUsecase struct {
	accountRepository repository.ISocialAccount
	googleClient      repository.IGoogleOAuth
	tokenGuard        ITokenGuard
	cipher            *crypto.TokenCipher
}

func NewAccountUsecase(
	accountRepository repository.ISocialAccount,
	googleClient repository.IGoogleOAuth,
	tokenGuard ITokenGuard,
	cipher *crypto.TokenCipher,
) IAccountUsecase {
	return &AccountUsecase{
		accountRepository: accountRepository,
		googleClient:      googleClient,
		tokenGuard:        tokenGuard,
		cipher:            cipher,
	}
}

func (u *AccountUsecase) Create(ctx context.Context, userID string, req dto.CreateAccountRequest) (*model.SocialAccount, error) {
	platform := model.Platform(req.Platform)
	if !model.ValidPlatform(platform) {
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrInvalidInput, req.Platform)
	}

	encryptedAccess, err := u.cipher.Encrypt(req.AccessToken)
	if err != nil {
		return nil, err
	}
	var encryptedRefresh *string
	if req.RefreshToken != nil && *req.RefreshToken != "" {
		v, err := u.cipher.Encrypt(*req.RefreshToken)
		if err != nil {
			return nil, err
		}
		encryptedRefresh = &v
	}

	now := utils.GetCurrentTime()
	account := &model.SocialAccount{
		ID:           uuid.NewString(),
		UserID:       userID,
		Platform:     platform,
		AccountID:    req.AccountID,
		AccountName:  req.AccountName,
		ProfileURL:   req.ProfileURL,
		AvatarURL:    req.AvatarURL,
		AccessToken:  encryptedAccess,
		RefreshToken: encryptedRefresh,
		Status:       model.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.accountRepository.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *AccountUsecase) Get(ctx context.Context, userID, accountID string) (*model.SocialAccount, error) {
	return u.owned(ctx, userID, accountID)
}

func (u *AccountUsecase) List(ctx context.Context, userID string, platform string, activeOnly bool) ([]*model.SocialAccount, error) {
	p := model.Platform(platform)
	if platform != "" && !model.ValidPlatform(p) {
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrInvalidInput, platform)
	}
	return u.accountRepository.ListByUser(ctx, userID, p, activeOnly)
}

func (u *AccountUsecase) Update(ctx context.Context, userID, accountID string, req dto.UpdateAccountRequest) (*model.SocialAccount, error) {
	account, err := u.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	if req.AccountName != nil {
		account.AccountName = *req.AccountName
	}
	if req.ProfileURL != nil {
		account.ProfileURL = req.ProfileURL
	}
	if req.AvatarURL != nil {
		account.AvatarURL = req.AvatarURL
	}
	if req.AccessToken != nil {
		v, err := u.cipher.Encrypt(*req.AccessToken)
		if err != nil {
			return nil, err
		}
		account.AccessToken = v
	}
	if req.RefreshToken != nil {
		v, err := u.cipher.Encrypt(*req.RefreshToken)
		if err != nil {
			return nil, err
		}
		account.RefreshToken = &v
	}
	account.UpdatedAt = utils.GetCurrentTime()

	if err := u.accountRepository.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *AccountUsecase) Delete(ctx context.Context, userID, accountID string) error {
	if _, err := u.owned(ctx, userID, accountID); err != nil {
		return err
	}
	return u.accountRepository.Delete(ctx, accountID)
}

func (u *AccountUsecase) ToggleStatus(ctx context.Context, userID, accountID string) (*model.SocialAccount, error) {
	account, err := u.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	var next model.AccountStatus
	switch account.Status {
	case model.AccountActive:
		next = model.AccountDisabled
	case model.AccountDisabled:
		next = model.AccountActive
	default:
		return nil, fmt.Errorf("%w: account in status %s cannot be toggled", ErrInvalidInput, account.Status)
	}

	if err := u.accountRepository.UpdateStatus(ctx, accountID, next); err != nil {
		return nil, err
	}
	account.Status = next
	return account, nil
}

func (u *AccountUsecase) RefreshToken(ctx context.Context, userID, accountID string) (*model.SocialAccount, error) {
	account, err := u.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	// Force the guard's refresh path by treating the token as already stale.
	stale := time.Now().Add(-time.Minute)
	account.TokenExpiry = &stale
	if _, err := u.tokenGuard.EnsureFreshToken(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *AccountUsecase) RefreshChannel(ctx context.Context, userID, accountID string) (*model.SocialAccount, error) {
	account, err := u.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account.Platform != model.PlatformYouTube {
		return nil, fmt.Errorf("%w: channel refresh only applies to YOUTUBE accounts", ErrInvalidInput)
	}
	if account.AccountID == nil {
		return nil, fmt.Errorf("%w: account has no channel bound", ErrInvalidInput)
	}

	accessToken, err := u.tokenGuard.EnsureFreshToken(ctx, account)
	if err != nil {
		return nil, err
	}
	channel, err := u.googleClient.GetChannel(ctx, accessToken, *account.AccountID)
	if err != nil {
		return nil, err
	}

	stats := model.ChannelStats{
		SubscriberCount: channel.SubscriberCount,
		VideoCount:      channel.VideoCount,
		ViewCount:       channel.ViewCount,
		FetchedAt:       utils.GetCurrentTime(),
	}
	blob, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	metadata := string(blob)

	account.AccountName = channel.Title
	account.ProfileURL = &channel.URL
	if channel.ThumbnailURL != "" {
		account.AvatarURL = &channel.ThumbnailURL
	}
	account.Metadata = &metadata
	account.UpdatedAt = utils.GetCurrentTime()

	if err := u.accountRepository.Update(ctx, account); err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("accountId", account.ID).Info("Channel info refreshed")
	return account, nil
}

func (u *AccountUsecase) owned(ctx context.Context, userID, accountID string) (*model.SocialAccount, error) {
	account, err := u.accountRepository.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}
	return account, nil
}
