package usecase

import (
	"context"
	"errors"
	"time"

	"social-ops/domain/model"
	"social-ops/domain/repository"
	"social-ops/infrastructure/crypto"
	"social-ops/infrastructure/logger"
)

// ErrTokenExpired means the account's credentials could not be refreshed and
// the account has been marked EXPIRED. The caller gets no token back.
var ErrTokenExpired = errors.New("account token expired and could not be refreshed")

type ITokenGuard interface {
	// EnsureFreshToken returns a decrypted access token valid for at least
	// the refresh buffer, refreshing it first when needed.
	EnsureFreshToken(ctx context.Context, account *model.SocialAccount) (string, error)
}

// TokenGuard lazily refreshes credentials on use. A token expiring within the
// buffer window is treated as already stale so in-flight requests don't race
// the expiry.
type TokenGuard struct {
	accountRepository repository.ISocialAccount
	googleClient      repository.IGoogleOAuth
	cipher            *crypto.TokenCipher
	buffer            time.Duration
}

func NewTokenGuard(
	accountRepository repository.ISocialAccount,
	googleClient repository.IGoogleOAuth,
	cipher *crypto.TokenCipher,
	bufferMins int,
) ITokenGuard {
	if bufferMins <= 0 {
		bufferMins = 5
	}
	return &TokenGuard{
		accountRepository: accountRepository,
		googleClient:      googleClient,
		cipher:            cipher,
		buffer:            time.Duration(bufferMins) * time.Minute,
	}
}

func (g *TokenGuard) EnsureFreshToken(ctx context.Context, account *model.SocialAccount) (string, error) {
	accessToken, err := g.cipher.Decrypt(account.AccessToken)
	if err != nil {
		return "", err
	}

	// No recorded expiry means the platform never told us; use as-is.
	if account.TokenExpiry == nil {
		return accessToken, nil
	}
	if time.Until(*account.TokenExpiry) > g.buffer {
		return accessToken, nil
	}

	return g.refresh(ctx, account)
}

func (g *TokenGuard) refresh(ctx context.Context, account *model.SocialAccount) (string, error) {
	if account.Platform != model.PlatformYouTube || g.googleClient == nil || account.RefreshToken == nil || *account.RefreshToken == "" {
		g.markExpired(ctx, account)
		return "", ErrTokenExpired
	}

	refreshToken, err := g.cipher.Decrypt(*account.RefreshToken)
	if err != nil {
		g.markExpired(ctx, account)
		return "", ErrTokenExpired
	}

	bundle, err := g.googleClient.Refresh(ctx, refreshToken)
	if err != nil {
		logger.GetLogger().
			WithField("accountId", account.ID).
			WithField("error", err).
			Warn("Token refresh failed; marking account expired")
		g.markExpired(ctx, account)
		return "", ErrTokenExpired
	}

	encryptedAccess, err := g.cipher.Encrypt(bundle.AccessToken)
	if err != nil {
		return "", err
	}
	var rotatedRefresh *string
	if bundle.RefreshToken != "" && bundle.RefreshToken != refreshToken {
		encryptedRefresh, err := g.cipher.Encrypt(bundle.RefreshToken)
		if err != nil {
			return "", err
		}
		rotatedRefresh = &encryptedRefresh
	}

	if err := g.accountRepository.UpdateTokens(ctx, account.ID, encryptedAccess, rotatedRefresh, bundle.Expiry); err != nil {
		return "", err
	}

	account.AccessToken = encryptedAccess
	if rotatedRefresh != nil {
		account.RefreshToken = rotatedRefresh
	}
	account.TokenExpiry = bundle.Expiry
	if account.Status == model.AccountExpired {
		if err := g.accountRepository.UpdateStatus(ctx, account.ID, model.AccountActive); err == nil {
			account.Status = model.AccountActive
		}
	}

	logger.GetLogger().WithField("accountId", account.ID).Info("Access token refreshed")
	return bundle.AccessToken, nil
}

func (g *TokenGuard) markExpired(ctx context.Context, account *model.SocialAccount) {
	if account.Status == model.AccountExpired {
		return
	}
	if err := g.accountRepository.UpdateStatus(ctx, account.ID, model.AccountExpired); err != nil {
		logger.GetLogger().
			WithField("accountId", account.ID).
			WithField("error", err).
			Error("Error while marking account expired")
		return
	}
	account.Status = model.AccountExpired
}
