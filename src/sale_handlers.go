package main

import (
	"errors"
	"fmt"
	"net/http"
	"ptx/src/common"
	"ptx/src/db"
	"ptx/src/middlewares"
	"ptx/src/models"
	"ptx/src/types"
	"ptx/src/utils"

	"github.com/gin-gonic/gin"
)

func saleHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/sales", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			filters := &types.SaleQueryFilters{
				Status:        ctx.Query("status"),
				Development:   ctx.Query("development"),
				CreatedAfter:  ctx.Query("created_after"),
				CreatedBefore: ctx.Query("created_before"),
			}
			var data []models.Sale
			var err error
			role := types.UserRole(ctx.GetString("role"))
			if role == types.ROLE_AGENT || role == types.ROLE_DEVELOPER {
				data, err = utils.GetAgentSales(userId, filters)
			} else {
				data, err = utils.GetOwnSales(userId, filters)
			}
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/sales/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			sale, ok := loadVisibleSale(ctx, params.ID)
			if !ok {
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": sale})
		}).
		GET("/sales/:id/events", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if _, ok := loadVisibleSale(ctx, params.ID); !ok {
				return
			}
			var events []models.SaleEvent
			db := db.GetDb()
			if err := db.
				Model(&models.SaleEvent{}).
				Where("sale_id = ?", params.ID).
				Order("created_at ASC").
				Find(&events).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
		}).
		GET("/sales/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			if _, ok := loadVisibleSale(ctx, params.ID); !ok {
				return
			}
			var payments []models.Payment
			db := db.GetDb()
			if err := db.
				Model(&models.Payment{}).
				Where("sale_id = ?", params.ID).
				Order("created_at ASC").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payments, "count": len(payments)})
		}).
		POST("/sales", func(ctx *gin.Context) {
			var body types.CreateSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			saleId, err := utils.CreateSale(&body, userId, nil)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": saleId}})
		}).
		POST("/sales/:id/reserve", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ReserveSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			var user models.User
			db := db.GetDb()
			if err := db.
				Model(&models.User{}).
				Where(&models.User{ID: userId}).
				First(&user).
				Error; err != nil {
				ctx.Status(http.StatusUnauthorized)
				return
			}
			if !user.KYCApproved {
				ctx.JSON(http.StatusForbidden, gin.H{"error": "identity verification is required before reserving"})
				return
			}
			payment, clientSecret, err := utils.CreateDepositPayment(params.ID, body.DepositAmount, userId)
			if err != nil {
				saleErrorResponse(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{
				"payment_id":    payment.ID,
				"client_secret": clientSecret,
			}})
		}).
		POST("/sales/:id/transition", middlewares.RequireRole(types.ROLE_AGENT, types.ROLE_DEVELOPER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.TransitionSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			sale, err := common.Transition(params.ID, types.SaleStatus(body.Target), fmt.Sprintf("user:%d", userId), body.Note)
			if err != nil {
				saleErrorResponse(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": sale})
		}).
		POST("/sales/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.CancelSaleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, ok := loadVisibleSale(ctx, params.ID); !ok {
				return
			}
			userId := ctx.GetUint("id")
			sale, err := common.Transition(params.ID, types.SALE_CANCELLED, fmt.Sprintf("user:%d", userId), body.Reason)
			if err != nil {
				saleErrorResponse(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": sale})
		})
	return g
}

// loadVisibleSale enforces ownership: buyers only see their own sales,
// agents and developers see everything.
func loadVisibleSale(ctx *gin.Context, saleID uint) (*models.Sale, bool) {
	var sale models.Sale
	db := db.GetDb()
	if err := db.
		Model(&models.Sale{}).
		Where(&models.Sale{ID: saleID}).
		Preload("Unit").
		Preload("Unit.Development").
		Preload("Payments").
		First(&sale).
		Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
		return nil, false
	}
	userId := ctx.GetUint("id")
	role := types.UserRole(ctx.GetString("role"))
	if role == types.ROLE_BUYER && sale.BuyerID != userId {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
		return nil, false
	}
	return &sale, true
}

func saleErrorResponse(ctx *gin.Context, err error) {
	var transitionErr *common.InvalidStateTransitionError
	switch {
	case errors.Is(err, common.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
	case errors.As(err, &transitionErr):
		ctx.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
	case errors.Is(err, common.ErrUnitUnavailable):
		ctx.JSON(http.StatusConflict, gin.H{"error": "unit is no longer available"})
	case errors.Is(err, common.ErrPersistenceConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": "conflicting update, try again"})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
