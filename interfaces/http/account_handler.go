package http

import (
	"github.com/gin-gonic/gin"

	"social-ops/domain/dto"
	"social-ops/infrastructure/logger"
	"social-ops/usecase"
)

type IAccountHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ToggleStatus(c *gin.Context)
	RefreshToken(c *gin.Context)
	RefreshChannel(c *gin.Context)
}

type AccountHandler struct {
	accountUsecase usecase.IAccountUsecase
}

func NewAccountHandler(accountUsecase usecase.IAccountUsecase) IAccountHandler {
	return &AccountHandler{accountUsecase: accountUsecase}
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	account, err := h.accountUsecase.Create(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}

func (h *AccountHandler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	accounts, err := h.accountUsecase.List(c.Request.Context(), c.GetString("user_id"), c.Query("platform"), activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, accounts)
}

func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accountUsecase.Get(c.Request.Context(), c.GetString("user_id"), c.Param("accountId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}

func (h *AccountHandler) Update(c *gin.Context) {
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	account, err := h.accountUsecase.Update(c.Request.Context(), c.GetString("user_id"), c.Param("accountId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accountUsecase.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("accountId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *AccountHandler) ToggleStatus(c *gin.Context) {
	account, err := h.accountUsecase.ToggleStatus(c.Request.Context(), c.GetString("user_id"), c.Param("accountId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}

func (h *AccountHandler) RefreshToken(c *gin.Context) {
	account, err := h.accountUsecase.RefreshToken(c.Request.Context(), c.GetString("user_id"), c.Param("accountId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}

func (h *AccountHandler) RefreshChannel(c *gin.Context) {
	account, err := h.accountUsecase.RefreshChannel(c.Request.Context(), c.GetString("user_id"), c.Param("accountId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, account)
}
