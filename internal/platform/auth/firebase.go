package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier implements Verifier using Firebase Admin SDK.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier creates a new verifier with the given auth client.
func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify validates a Firebase ID token and checks for revocation.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, classifyFirebaseError(err)
	}

	email, _ := token.Claims["email"].(string)
	verified, _ := token.Claims["email_verified"].(bool)

	return &User{
		UID:           token.UID,
		Email:         email,
		EmailVerified: verified,
	}, nil
}

// firebaseErrorKinds maps Admin SDK error predicates to verifier errors.
// The first matching predicate wins.
var firebaseErrorKinds = []struct {
	match func(error) bool
	err   error
}{
	{fbauth.IsCertificateFetchFailed, ErrCertificateFetch},
	{fbauth.IsIDTokenExpired, ErrTokenExpired},
	{fbauth.IsIDTokenRevoked, ErrTokenRevoked},
	{fbauth.IsUserDisabled, ErrUserDisabled},
}

func classifyFirebaseError(err error) error {
	for _, kind := range firebaseErrorKinds {
		if kind.match(err) {
			return kind.err
		}
	}
	return ErrInvalidToken
}

// Compile-time interface check
var _ Verifier = (*FirebaseVerifier)(nil)
