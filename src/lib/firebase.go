package lib

import (
	"context"
	"log"
	"os"
	"path"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var innerApp *firebase.App
var innerAuth *auth.Client
var innerMessaging *messaging.Client

func getOpts() *option.ClientOption {
	secretsPath := os.Getenv("SECRETS_DIR")
	opt := option.WithCredentialsFile(path.Join(secretsPath, "admin-sdk-credentials.json"))
	return &opt
}

func GetFirebaseMessaging() (*messaging.Client, error) {
	if innerMessaging != nil {
		return innerMessaging, nil
	}
	opt := getOpts()
	if innerApp == nil {
		app, err := firebase.NewApp(context.Background(), nil, *opt)
		if err != nil {
			log.Printf("error initializing app: %v\n", err.Error())
			return nil, err
		}
		innerApp = app
	}
	msg, err := innerApp.Messaging(context.Background())
	if err != nil {
		log.Printf("error initializing Firebase Messaging: %v\n", err.Error())
		return nil, err
	}
	innerMessaging = msg
	return msg, nil
}

func GetFirebaseAuth() (*auth.Client, error) {
	if innerAuth != nil {
		return innerAuth, nil
	}
	opt := getOpts()
	if innerApp == nil {
		app, err := firebase.NewApp(context.Background(), nil, *opt)
		if err != nil {
			log.Printf("error initializing app: %v\n", err.Error())
			return nil, err
		}
		innerApp = app
	}
	au, err := innerApp.Auth(context.Background())
	if err != nil {
		log.Printf("error initializing Firebase Auth: %v\n", err.Error())
		return nil, err
	}
	innerAuth = au
	return au, nil
}

// PushToDevice delivers a data notification to one device token,
// best-effort.
func PushToDevice(token string, title string, body string, data map[string]string) {
	fcm, err := GetFirebaseMessaging()
	if err != nil {
		return
	}
	out, err := fcm.Send(context.Background(), &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		log.Printf("[FCM] Error sending message: %s\n", err.Error())
		return
	}
	log.Printf("[FCM] Sent message: %s\n", out)
}
