package main

import (
	"net/http"
	"ptx/src/db"
	"ptx/src/middlewares"
	"ptx/src/models"
	"ptx/src/types"

	"github.com/gin-gonic/gin"
)

func unitHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/units", func(ctx *gin.Context) {
			var units []models.Unit
			db := db.GetDb()
			query := db.
				Model(&models.Unit{}).
				Preload("Development")
			if status := ctx.Query("status"); status != "" {
				query = query.Where("status = ?", status)
			}
			if dev := ctx.Query("development"); dev != "" {
				query = query.
					Joins("JOIN developments ON developments.id = units.development_id").
					Where("developments.slug = ?", dev)
			}
			if err := query.Order("units.number ASC").Find(&units).Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": units, "count": len(units)})
		}).
		GET("/units/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var unit models.Unit
			db := db.GetDb()
			if err := db.
				Model(&models.Unit{}).
				Where(&models.Unit{ID: params.ID}).
				Preload("Development").
				First(&unit).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": unit})
		}).
		PATCH("/units/:id/price", middlewares.RequireRole(types.ROLE_DEVELOPER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body struct {
				BasePrice int64 `json:"base_price" binding:"required,gt=0"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			res := db.
				Model(&models.Unit{}).
				Where("id = ? AND status = ?", params.ID, types.UNIT_AVAILABLE).
				Update("base_price", body.BasePrice)
			if res.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusConflict, gin.H{"error": "unit is not open for repricing"})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
