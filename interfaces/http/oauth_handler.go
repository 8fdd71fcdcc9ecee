package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"social-ops/domain/dto"
	"social-ops/infrastructure/configuration"
	"social-ops/infrastructure/logger"
	"social-ops/usecase"
)

const (
	stateCookie  = "oauth_state"
	handleCookie = "oauth_handle"
)

type IOAuthHandler interface {
	Authorize(c *gin.Context)
	Callback(c *gin.Context)
	PendingChannels(c *gin.Context)
	ConfirmChannels(c *gin.Context)
}

type OAuthHandler struct {
	oauthUsecase usecase.IOAuthUsecase
}

func NewOAuthHandler(oauthUsecase usecase.IOAuthUsecase) IOAuthHandler {
	return &OAuthHandler{oauthUsecase: oauthUsecase}
}

// Authorize handles GET /api/oauth/youtube/authorize. It returns the
// provider URL and binds the anti-forgery state to the browser via cookie.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	authURL, state, err := h.oauthUsecase.Authorize(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", configuration.C.App.SecureCookies, true)
	ok(c, gin.H{"auth_url": authURL})
}

// Callback handles GET /auth/youtube/callback. The provider redirect carries
// no Authorization header; the user session is recovered from the state. The
// result is delivered to the frontend via redirect.
func (h *OAuthHandler) Callback(c *gin.Context) {
	cookieState, _ := c.Cookie(stateCookie)
	// The state cookie is single-use no matter how the callback ends.
	c.SetCookie(stateCookie, "", -1, "/", "", configuration.C.App.SecureCookies, true)

	if errorParam := c.Query("error"); errorParam != "" {
		h.redirectError(c, "provider_denied")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.redirectError(c, "missing_code")
		return
	}

	result, err := h.oauthUsecase.HandleCallback(c.Request.Context(), c.Query("state"), code, cookieState)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("OAuth callback failed")
		h.redirectError(c, oauthErrorCode(err))
		return
	}

	params := url.Values{}
	params.Set("status", "success")
	params.Set("outcome", string(result.Outcome))
	if result.Outcome == usecase.OutcomeSelectionRequired {
		c.SetCookie(handleCookie, result.Handle, 600, "/", "", configuration.C.App.SecureCookies, true)
		params.Set("handle", result.Handle)
	}
	c.Redirect(http.StatusFound, h.frontendURL(params))
}

// PendingChannels handles GET /api/oauth/youtube/channels. It lists the
// channels of a pending selection for the picker UI.
func (h *OAuthHandler) PendingChannels(c *gin.Context) {
	handle := h.selectionHandle(c)
	if handle == "" {
		badRequest(c, "no pending channel selection")
		return
	}
	channels, err := h.oauthUsecase.PendingChannels(c.Request.Context(), c.GetString("user_id"), handle)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, channels)
}

// ConfirmChannels handles POST /api/oauth/youtube/confirm-channels.
func (h *OAuthHandler) ConfirmChannels(c *gin.Context) {
	handle := h.selectionHandle(c)
	if handle == "" {
		badRequest(c, "no pending channel selection")
		return
	}
	var req dto.ConfirmChannelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	res, err := h.oauthUsecase.ConfirmChannels(c.Request.Context(), c.GetString("user_id"), handle, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.SetCookie(handleCookie, "", -1, "/", "", configuration.C.App.SecureCookies, true)
	ok(c, res)
}

// selectionHandle resolves the pending-selection handle from the query or
// the callback cookie.
func (h *OAuthHandler) selectionHandle(c *gin.Context) string {
	if handle := c.Query("handle"); handle != "" {
		return handle
	}
	handle, _ := c.Cookie(handleCookie)
	return handle
}

// oauthErrorCode maps callback failures onto the stable error codes the
// frontend banner keys on. Upstream error text never reaches the redirect.
func oauthErrorCode(err error) string {
	switch {
	case errors.Is(err, usecase.ErrStateMismatch):
		return "state_mismatch"
	case errors.Is(err, usecase.ErrStateExpired):
		return "state_expired"
	case errors.Is(err, usecase.ErrInvalidInput):
		return "invalid_request"
	default:
		return "exchange_failed"
	}
}

func (h *OAuthHandler) redirectError(c *gin.Context, code string) {
	params := url.Values{}
	params.Set("status", "error")
	params.Set("error", code)
	c.Redirect(http.StatusFound, h.frontendURL(params))
}

func (h *OAuthHandler) frontendURL(params url.Values) string {
	return fmt.Sprintf("%s/accounts/oauth-result?%s", configuration.C.Frontend.BaseURL, params.Encode())
}
