package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"rassrochka_app/internal/app"
	"rassrochka_app/internal/config"
	"rassrochka_app/internal/models"
	"rassrochka_app/internal/services"
)

func main() {
	idInstance := flag.String("id", "", "Green API idInstance")
	apiToken := flag.String("token", "", "Green API apiTokenInstance")
	phone := flag.String("phone", "", "Phone number (e.g. 8 999 123-45-67)")
	msg := flag.String("msg", "Test message from rassrochka", "Message body")
	flag.Parse()

	if *idInstance == "" || *apiToken == "" || *phone == "" {
		flag.Usage()
		logrus.Fatal("-id, -token and -phone are required")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	config.ConfigureLogger(cfg.App.LogLevel)

	chatID, err := app.PhoneNormalizer(cfg).ChatID(*phone)
	if err != nil {
		logrus.WithError(err).Fatal("Unusable phone number")
	}

	client := services.NewGreenAPIClient(cfg.GreenAPI.BaseURL, cfg.GreenAPI.Timeout)
	creds := models.GreenAPICredentials{IDInstance: *idInstance, APITokenInstance: *apiToken}
	ctx := context.Background()

	state, err := client.GetStateInstance(ctx, creds)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to read instance state")
	}
	logrus.WithField("state", state).Info("Instance state")

	logrus.WithField("chat_id", chatID).Info("Sending message")
	if err := client.Send(ctx, creds, chatID, *msg); err != nil {
		logrus.WithError(err).Fatal("Failed to send message")
	}

	logrus.Info("Message sent successfully!")
}
