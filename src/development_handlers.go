package main

import (
	"log"
	"net/http"
	"ptx/src/db"
	"ptx/src/lib/aws"
	"ptx/src/middlewares"
	"ptx/src/models"
	"ptx/src/types"
	"ptx/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func developmentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/developments", func(ctx *gin.Context) {
			var data []models.Development
			db := db.GetDb()
			if err := db.
				Model(&models.Development{}).
				Preload("Units").
				Order("created_at DESC").
				Find(&data).
				Error; err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/developments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var development models.Development
			db := db.GetDb()
			if err := db.
				Model(&models.Development{}).
				Where(&models.Development{ID: params.ID}).
				Preload("Units").
				Preload("Developer").
				First(&development).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "development not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": development})
		}).
		POST("/developments", middlewares.RequireRole(types.ROLE_DEVELOPER), func(ctx *gin.Context) {
			var body types.CreateDevelopmentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			development := models.Development{
				Name:        body.Name,
				Slug:        slug.Make(body.Name),
				Location:    body.Location,
				Description: &body.Description,
				DeveloperID: userId,
			}
			for _, u := range body.Units {
				development.Units = append(development.Units, models.Unit{
					Number:    u.Number,
					Type:      u.Type,
					Bedrooms:  u.Bedrooms,
					BasePrice: u.BasePrice,
					Status:    types.UNIT_AVAILABLE,
				})
			}
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var count int64
				if err := tx.
					Model(&models.Development{}).
					Where("slug = ?", development.Slug).
					Count(&count).
					Error; err != nil {
					return err
				}
				if count > 0 {
					development.Slug = utils.WithSuffix(development.Slug)
				}
				return tx.Create(&development).Error
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": development.ID, "slug": development.Slug}})
		}).
		POST("/developments/:id/brochure", middlewares.RequireRole(types.ROLE_DEVELOPER), func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var development models.Development
			db := db.GetDb()
			if err := db.
				Model(&models.Development{}).
				Where(&models.Development{ID: params.ID}).
				First(&development).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "development not found"})
				return
			}
			file, err := ctx.FormFile("file")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			src, err := file.Open()
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			defer src.Close()
			key := "developments/" + development.Slug + "/brochure.pdf"
			url, err := aws.S3UploadDocument(key, src, "application/pdf")
			if err != nil {
				log.Printf("Error uploading brochure for development %d: %s\n", development.ID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": gin.H{"url": url}})
		}).
		GET("/developments/:id/brochure", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var development models.Development
			db := db.GetDb()
			if err := db.
				Model(&models.Development{}).
				Where(&models.Development{ID: params.ID}).
				First(&development).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "development not found"})
				return
			}
			key := "developments/" + development.Slug + "/brochure.pdf"
			url, err := aws.S3PresignDocument(key)
			if err != nil {
				log.Printf("Error presigning brochure for development %d: %s\n", development.ID, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "document unavailable"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"url": url}})
		})
	return g
}
