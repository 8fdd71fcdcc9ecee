package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"social-ops/domain/dto"
	"social-ops/domain/model"
	"social-ops/infrastructure/crypto"
	"social-ops/usecase"
)

func newOAuthFixture(channels ...model.Channel) (usecase.IOAuthUsecase, *fakeAccountRepo, *fakeSessionStore) {
	accounts := newFakeAccountRepo()
	sessions := newFakeSessionStore()
	google := &fakeGoogleClient{
		identity: model.GoogleIdentity{ID: "g-1", Email: "creator@example.com", Name: "Creator"},
		channels: channels,
	}
	uc := usecase.NewOAuthUsecase(accounts, sessions, google, crypto.NewTokenCipher(""), 5, 10)
	return uc, accounts, sessions
}

func startFlow(t *testing.T, uc usecase.IOAuthUsecase) string {
	t.Helper()
	authURL, state, err := uc.Authorize(context.Background(), "user-1")
	require.NoError(t, err)
	require.Contains(t, authURL, state)
	return state
}

func TestOAuth_CallbackStateMismatch(t *testing.T) {
	uc, _, _ := newOAuthFixture()
	state := startFlow(t, uc)

	_, err := uc.HandleCallback(context.Background(), state, "code", "some-other-state")
	require.ErrorIs(t, err, usecase.ErrStateMismatch)

	_, err = uc.HandleCallback(context.Background(), state, "code", "")
	require.ErrorIs(t, err, usecase.ErrStateMismatch)
}

func TestOAuth_CallbackStateSingleUse(t *testing.T) {
	uc, _, _ := newOAuthFixture(model.Channel{ID: "UC1", Title: "Main"})
	state := startFlow(t, uc)

	_, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)

	_, err = uc.HandleCallback(context.Background(), state, "code", state)
	require.ErrorIs(t, err, usecase.ErrStateExpired)
}

func TestOAuth_CallbackNoChannels(t *testing.T) {
	uc, accounts, _ := newOAuthFixture()
	state := startFlow(t, uc)

	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)
	require.Equal(t, usecase.OutcomeNoChannel, result.Outcome)
	require.NotNil(t, result.Account)
	require.Nil(t, result.Account.AccountID)
	require.Equal(t, model.PlatformYouTube, result.Account.Platform)
	require.Equal(t, "Creator", result.Account.AccountName)

	stored, err := accounts.ListByUser(context.Background(), "user-1", model.PlatformYouTube, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestOAuth_CallbackSingleChannelBinds(t *testing.T) {
	uc, accounts, _ := newOAuthFixture(model.Channel{
		ID: "UC1", Title: "Main Channel", URL: "https://www.youtube.com/channel/UC1", SubscriberCount: 42,
	})
	state := startFlow(t, uc)

	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)
	require.Equal(t, usecase.OutcomeBound, result.Outcome)
	require.NotNil(t, result.Account.AccountID)
	require.Equal(t, "UC1", *result.Account.AccountID)
	require.Equal(t, "Main Channel", result.Account.AccountName)
	require.Equal(t, model.AccountActive, result.Account.Status)
	require.NotNil(t, result.Account.Metadata)

	stored, err := accounts.ListByUser(context.Background(), "user-1", model.PlatformYouTube, true)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestOAuth_ReauthorizeUpdatesExistingAccount(t *testing.T) {
	uc, accounts, _ := newOAuthFixture(model.Channel{ID: "UC1", Title: "Main Channel"})

	state := startFlow(t, uc)
	_, err := uc.HandleCallback(context.Background(), state, "first", state)
	require.NoError(t, err)

	state = startFlow(t, uc)
	_, err = uc.HandleCallback(context.Background(), state, "second", state)
	require.NoError(t, err)

	stored, err := accounts.ListByUser(context.Background(), "user-1", model.PlatformYouTube, false)
	require.NoError(t, err)
	require.Len(t, stored, 1, "re-authorizing the same channel must not duplicate the account")
	require.Equal(t, "access-second", stored[0].AccessToken)
}

func TestOAuth_CallbackMultiChannelParksSelection(t *testing.T) {
	uc, accounts, sessions := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
		model.Channel{ID: "UC3", Title: "Archive"},
	)
	state := startFlow(t, uc)

	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)
	require.Equal(t, usecase.OutcomeSelectionRequired, result.Outcome)
	require.NotEmpty(t, result.Handle)
	require.Len(t, result.Channels, 3)

	// Nothing persisted until the user confirms.
	stored, err := accounts.ListByUser(context.Background(), "user-1", model.PlatformYouTube, false)
	require.NoError(t, err)
	require.Empty(t, stored)
	require.Len(t, sessions.selections, 1)
}

func TestOAuth_ConfirmChannelsCreatesAccounts(t *testing.T) {
	uc, accounts, sessions := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
		model.Channel{ID: "UC3", Title: "Archive"},
	)
	state := startFlow(t, uc)
	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)

	res, err := uc.ConfirmChannels(context.Background(), "user-1", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs: []string{"UC1", "UC3"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 0, res.Updated)
	require.Len(t, res.AccountIDs, 2)

	stored, err := accounts.ListByUser(context.Background(), "user-1", model.PlatformYouTube, false)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Empty(t, sessions.selections, "selection is single-use")
}

func TestOAuth_ConfirmChannelsRejectsUnknownChannel(t *testing.T) {
	uc, _, _ := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
	)
	state := startFlow(t, uc)
	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)

	_, err = uc.ConfirmChannels(context.Background(), "user-1", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs: []string{"UC999"},
	})
	require.Error(t, err)
}

func TestOAuth_ConfirmChannelsWrongUserForbidden(t *testing.T) {
	uc, _, _ := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
	)
	state := startFlow(t, uc)
	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)

	_, err = uc.ConfirmChannels(context.Background(), "user-2", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs: []string{"UC1"},
	})
	require.ErrorIs(t, err, usecase.ErrForbidden)
}

func TestOAuth_ConfirmChannelsExpiredHandle(t *testing.T) {
	uc, _, _ := newOAuthFixture()
	_, err := uc.ConfirmChannels(context.Background(), "user-1", "gone", dto.ConfirmChannelsRequest{
		ChannelIDs: []string{"UC1"},
	})
	require.ErrorIs(t, err, usecase.ErrSelectionExpired)
}

func TestOAuth_ConfirmChannelsRefreshMode(t *testing.T) {
	uc, accounts, _ := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
	)

	state := startFlow(t, uc)
	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)
	res, err := uc.ConfirmChannels(context.Background(), "user-1", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs: []string{"UC1"},
	})
	require.NoError(t, err)
	existingID := res.AccountIDs[0]

	state = startFlow(t, uc)
	result, err = uc.HandleCallback(context.Background(), state, "newer", state)
	require.NoError(t, err)

	res, err = uc.ConfirmChannels(context.Background(), "user-1", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs:        []string{"UC2"},
		UpdatingAccountID: &existingID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 0, res.Created)

	account, err := accounts.GetByID(context.Background(), existingID)
	require.NoError(t, err)
	require.Equal(t, "UC2", *account.AccountID)
	require.Equal(t, "access-newer", account.AccessToken)
}

func TestOAuth_ConfirmChannelsRefreshModeNeedsExactlyOne(t *testing.T) {
	uc, _, _ := newOAuthFixture(
		model.Channel{ID: "UC1", Title: "Main"},
		model.Channel{ID: "UC2", Title: "Clips"},
	)
	state := startFlow(t, uc)
	result, err := uc.HandleCallback(context.Background(), state, "code", state)
	require.NoError(t, err)

	accountID := "acc-existing"
	_, err = uc.ConfirmChannels(context.Background(), "user-1", result.Handle, dto.ConfirmChannelsRequest{
		ChannelIDs:        []string{"UC1", "UC2"},
		UpdatingAccountID: &accountID,
	})
	require.Error(t, err)
}
