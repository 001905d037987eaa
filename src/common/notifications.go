package common

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"ptx/src/config"
	"ptx/src/db"
	"ptx/src/lib"
	awslib "ptx/src/lib/aws"
	"ptx/src/lib/mailer"
	"ptx/src/models"
	"ptx/src/types"

	"github.com/tidwall/gjson"
)

const (
	NOTIFY_PAYMENT_COMPLETED     = "payment_completed"
	NOTIFY_RESERVATION_CREATED   = "reservation_created"
	NOTIFY_TRANSACTION_CANCELLED = "transaction_cancelled"

	notificationsQueue = "SaleNotifications"
)

// EmitNotification hands a sale event to the external dispatcher,
// best-effort. It runs after the core transaction has committed; any
// failure here is logged and swallowed so a dead queue can never roll
// back a completed payment or reservation.
func EmitNotification(event string, saleID uint, payload types.JSONB) {
	body := types.JSONB{
		"event":          event,
		"transaction_id": saleID,
		"payload":        payload,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Notify] recovered emitting %s for sale %d: %v\n", event, saleID, r)
			}
		}()
		apiEnv := config.API_ENV
		if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
			b, err := json.Marshal(&body)
			if err != nil {
				log.Printf("[Notify] Error serializing %s for sale %d: %s\n", event, saleID, err.Error())
				return
			}
			if err := lib.SQSProduceMessage(notificationsQueue, string(b)); err != nil {
				log.Printf("[Notify] Error queueing %s for sale %d: %s\n", event, saleID, err.Error())
			}
			return
		}
		if err := lib.KafkaProduceMessage("notifications", notificationsQueue, &body); err != nil {
			log.Printf("[Notify] Error queueing %s for sale %d: %s\n", event, saleID, err.Error())
		}
	}()
}

// NotificationsConsumer drains the sale-notification queue and fans each
// event out to email and push. Runs once per process.
func NotificationsConsumer() {
	handler := types.Handler(handleNotificationMessage)
	apiEnv := config.API_ENV
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		c := awslib.NewSQSConsumer(notificationsQueue, handler)
		c.Listen()
		return
	}
	lib.KafkaConsume("notificationsConsumer", notificationsQueue, handler)
}

func handleNotificationMessage(body string) {
	if !gjson.Valid(body) {
		log.Printf("[%s]: Received invalid json body. Aborting", notificationsQueue)
		return
	}
	event := gjson.Get(body, "event").String()
	saleID := uint(gjson.Get(body, "transaction_id").Uint())

	var sale models.Sale
	db := db.GetDb()
	if err := db.
		Model(&models.Sale{}).
		Preload("Buyer").
		Preload("Unit.Development").
		Where(&models.Sale{ID: saleID}).
		First(&sale).
		Error; err != nil {
		log.Printf("[Notify] Could not load sale %d for %s: %s\n", saleID, event, err.Error())
		return
	}
	if sale.Buyer == nil {
		log.Printf("[Notify] sale %d has no buyer loaded, skipping\n", saleID)
		return
	}

	subject, text := notificationCopy(event, &sale)
	if subject == "" {
		log.Printf("[Notify] no template for event %s, skipping\n", event)
		return
	}
	if err := mailer.NewMailerMessage(&lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: "PTX Sales",
		To:       []string{sale.Buyer.Email},
		Subject:  subject,
		Body:     text,
	}); err != nil {
		log.Printf("[Notify] Error enqueueing email for sale %d: %s\n", saleID, err.Error())
	}

	token, err := lib.GetDeviceToken(sale.Buyer.UID)
	if err != nil || token == "" {
		return
	}
	lib.PushToDevice(token, subject, text, map[string]string{
		"event":            event,
		"reference_number": sale.ReferenceNumber,
	})
}

func notificationCopy(event string, sale *models.Sale) (string, string) {
	ref := sale.ReferenceNumber
	switch event {
	case NOTIFY_RESERVATION_CREATED:
		return fmt.Sprintf("Reservation confirmed: %s", ref),
			fmt.Sprintf("Your reservation for unit %s is confirmed. Reference: %s", sale.Unit.Number, ref)
	case NOTIFY_PAYMENT_COMPLETED:
		return fmt.Sprintf("Payment received: %s", ref),
			fmt.Sprintf("We received your payment. Outstanding balance: %d cents. Reference: %s", sale.OutstandingBalance, ref)
	case NOTIFY_TRANSACTION_CANCELLED:
		return fmt.Sprintf("Sale cancelled: %s", ref),
			fmt.Sprintf("Your sale %s has been cancelled. Completed payments are refunded separately.", ref)
	}
	return "", ""
}

// EmailQueueConsumer delivers queued emails, SES in test/production and
// SMTP locally.
func EmailQueueConsumer() {
	emailQueue := os.Getenv("EMAIL_QUEUE")
	handler := types.Handler(func(body string) {
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", emailQueue)
			return
		}
		from := gjson.Get(body, "from").String()
		subject := gjson.Get(body, "subject").String()
		text := gjson.Get(body, "body").String()
		html := gjson.Get(body, "html").Bool()
		for _, to := range gjson.Get(body, "to").Array() {
			if config.API_ENV == string(types.Test) || config.API_ENV == string(types.Production) {
				awslib.SESSendSimple(from, to.String(), subject, text, html)
				continue
			}
			if err := lib.SendMail(&lib.SendMailInput{
				From:    from,
				To:      []string{to.String()},
				Subject: subject,
				Body:    text,
				Html:    html,
			}); err != nil {
				log.Printf("[%s] Error sending email: %s\n", emailQueue, err.Error())
			}
		}
	})
	if config.API_ENV == string(types.Test) || config.API_ENV == string(types.Production) {
		c := awslib.NewSQSConsumer(emailQueue, handler)
		c.Listen()
		return
	}
	lib.KafkaConsume("emailsConsumer", emailQueue, handler)
}
