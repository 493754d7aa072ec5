// Package auth verifies storefront customer identities.
package auth

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrInvalidIdentity = errors.New("invalid identity token")

// Identity is the verified customer behind a request
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Verifier turns a bearer token into an Identity
type Verifier interface {
	Verify(ctx context.Context, bearer string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(ctx context.Context, bearer string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, bearer string) (Identity, error) {
	return f(ctx, bearer)
}

// FirebaseVerifier checks Firebase ID tokens
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, bearer string) (Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, bearer)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	id := Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}
