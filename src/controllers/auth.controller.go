package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"ptx/src/db"
	"ptx/src/lib"
	"ptx/src/models"
	"ptx/src/types"
	"ptx/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		log.Printf("Error initializing FirebaseAuth client: %s\n", err.Error())
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		log.Printf("error from Firebase: %s\n", err.Error())
		return nil, http.StatusNotFound, err
	}

	db := db.GetDb()
	var muser models.User
	if err = db.
		Model(&models.User{}).
		Where(&models.User{Email: user.Email}).
		First(&muser).
		Error; err != nil {
		log.Printf("error: %s\n", err.Error())
		return nil, http.StatusNotFound, err
	}

	jwt, err := utils.GenerateJWT(muser.Email, muser.ID, muser.UID, muser.Role)
	if err != nil {
		log.Printf("Error signing token for user [%d]: %s\n", muser.ID, err.Error())
		return nil, http.StatusInternalServerError, err
	}

	rd := lib.GetRedisClient()
	if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result(); err != nil {
		log.Printf("[redis] Error updating user cache: %s\n", err.Error())
	}

	return &jwt, http.StatusOK, nil
}

func AuthRegister(ctx *gin.Context) (uid *string, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	auth, err := lib.GetFirebaseAuth()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	user, err := auth.GetUserByEmail(context.Background(), body.Email)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	role := types.ROLE_BUYER
	switch types.UserRole(body.Role) {
	case types.ROLE_AGENT, types.ROLE_DEVELOPER:
		role = types.UserRole(body.Role)
	}

	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return errors.New("could not complete transaction")
		}
		if count > 0 {
			err := errors.New("user is already registered in the system. Please proceed to Log In")
			log.Printf("error: %s\n", err.Error())
			return err
		}

		newUser := models.User{
			Email: user.Email,
			UID:   user.UID,
			Role:  role,
			Name:  user.DisplayName,
		}
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return fmt.Errorf("error creating user: %s", user.Email)
		}

		sc := lib.GetStripeClient()
		cus, err := sc.V1Customers.Create(context.Background(), &stripe.CustomerCreateParams{
			Email:    stripe.String(user.Email),
			Name:     stripe.String(user.DisplayName),
			Metadata: map[string]string{"id": fmt.Sprintf("%d", newUser.ID)},
		})
		if err != nil {
			log.Printf("Error creating customer for user [%d]: %s\n", newUser.ID, err.Error())
			return nil
		}
		return tx.
			Model(&models.User{}).
			Where("id = ?", newUser.ID).
			Updates(&models.User{StripeCustomerId: &cus.ID}).
			Error
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return &user.UID, http.StatusOK, nil
}
