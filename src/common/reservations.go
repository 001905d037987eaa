package common

import (
	"errors"
	"log"
	"ptx/src/config"
	"ptx/src/db"
	"ptx/src/lib"
	awslib "ptx/src/lib/aws"
	"ptx/src/models"
	"ptx/src/types"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

const reservationExpiryQueue = "ReservationExpiry"

// ReservationExpiryConsumer cancels sales whose booking deposit never
// arrived within the validity window. Messages are produced by the
// schedule created at reservation time; a sale that has moved on since
// is left alone.
func ReservationExpiryConsumer() {
	qname := reservationExpiryQueue
	log.Printf("%s: Listening for messages...", qname)
	handler := types.Handler(func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", qname)
			return
		}
		message := body
		if inner := gjson.Get(body, "Message"); inner.Exists() {
			// SNS envelope
			message = inner.String()
		}
		saleID := uint(gjson.Get(message, "sale_id").Uint())
		payloadId := gjson.Get(message, "payloadId").String()
		log.Printf("[%s]: sale %d", qname, saleID)

		go expireStaleReservation(saleID)

		go func() {
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.
					Model(&models.JobTask{}).
					Where(&models.JobTask{PayloadID: payloadId}).
					Update("status", "done").
					Error
			})
			if err != nil {
				log.Printf("Error updating job status: %s\n", err.Error())
			}
		}()
	})
	if config.API_ENV == string(types.Test) || config.API_ENV == string(types.Production) {
		c := awslib.NewSQSConsumer(qname, handler)
		c.Listen()
		return
	}
	lib.KafkaConsume("reservationExpiryConsumer", qname, handler)
}

func expireStaleReservation(saleID uint) {
	var expired *models.Sale
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.
			Where(&models.Sale{ID: saleID}).
			First(&sale).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sale.Status != types.SALE_RESERVATION_PENDING {
			// deposit arrived or the sale was cancelled in the meantime
			return nil
		}
		s, err := TransitionTx(tx, sale.ID, types.SALE_CANCELLED, "system", "reservation validity window elapsed")
		if err != nil {
			return err
		}
		expired = s
		return nil
	})
	if err != nil {
		log.Printf("Error expiring reservation for sale %d: %s\n", saleID, err.Error())
		return
	}
	if expired != nil {
		EmitNotification(NOTIFY_TRANSACTION_CANCELLED, expired.ID, types.JSONB{
			"reference_number": expired.ReferenceNumber,
			"reason":           "reservation expired",
		})
	}
}
