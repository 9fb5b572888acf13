package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftlink/craftlink-backend/internal/http/handlers/common"
	"github.com/craftlink/craftlink-backend/internal/service"
)

// WalletHandler предоставляет HTTP слой для кошелька.
type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet обрабатывает GET /wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// Deposit обрабатывает POST /wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		AmountNGN float64 `json:"amount_ngn" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	tx, err := h.wallets.Deposit(c.Request.Context(), userID, req.AmountNGN)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// ListTransactions обрабатывает GET /wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	txs, err := h.wallets.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, txs)
}

// RequestWithdrawal обрабатывает POST /wallet/withdrawals.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		AmountNGN    float64 `json:"amount_ngn" binding:"required"`
		BankName     string  `json:"bank_name" binding:"required"`
		AccountLast4 string  `json:"account_last4" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	withdrawal, err := h.wallets.RequestWithdrawal(c.Request.Context(), userID, req.AmountNGN, req.BankName, req.AccountLast4)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, withdrawal)
}

// ListWithdrawals обрабатывает GET /wallet/withdrawals.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	withdrawals, err := h.wallets.ListWithdrawals(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, withdrawals)
}
