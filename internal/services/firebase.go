package services

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitFirebase builds the Admin SDK auth client that verifies managers' ID
// tokens. Role claims are assigned outside this service.
func InitFirebase(credPath string) (*auth.Client, error) {
	if _, err := os.Stat(credPath); err != nil {
		return nil, fmt.Errorf("firebase credentials %q: %w", credPath, err)
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return client, nil
}
