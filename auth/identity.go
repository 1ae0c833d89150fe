package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ataa/localbase/sanitize"
	"ataa/localbase/store"
)

// External identity handshake. The provider issues a self-contained token
// (three base64url segments); this shim only decodes the payload claims
// for display fields. The signature is NOT verified — identity is
// trust-on-receipt, which is acceptable for a local stand-in and nothing
// else. Any production deployment needs server-side verification.

var (
	// ErrIdentityNotConfigured means no identity client id is set; the
	// handshake is rejected before any provider interaction.
	ErrIdentityNotConfigured = errors.New("external identity provider not configured")
	// ErrIdentityCancelled means the user dismissed the provider's
	// consent flow.
	ErrIdentityCancelled = errors.New("sign-in cancelled")
	// ErrIdentityDecode means the provider returned a token whose
	// payload could not be decoded.
	ErrIdentityDecode = errors.New("identity token decode failed")
)

// TokenSource obtains an identity token from the provider's interactive
// flow (the popup/redirect analog). Implementations return
// ErrIdentityCancelled when the user dismisses the flow.
type TokenSource interface {
	Credential(ctx context.Context, locale string) (string, error)
}

// SignInWithExternalIdentity runs the third-party handshake: obtain a
// token, decode its profile claims, upsert the matching local user and
// make them the session user. An existing user (matched by claimed email,
// case-insensitive) keeps their id, role, points and preferences; anyone
// else gets a fresh Student profile with the welcome point balance.
func (s *Service) SignInWithExternalIdentity(ctx context.Context, locale string) (store.Document, error) {
	if s.clientID == "" || s.tokens == nil {
		return nil, ErrIdentityNotConfigured
	}

	token, err := s.tokens.Credential(ctx, locale)
	if err != nil {
		if errors.Is(err, ErrIdentityCancelled) || errors.Is(err, context.Canceled) {
			return nil, ErrIdentityCancelled
		}
		return nil, fmt.Errorf("obtain identity token: %w", err)
	}

	profile, err := decodeIdentityToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.upsertIdentityUser(ctx, profile, locale)
	if err != nil {
		return nil, err
	}

	session := sessionCopy(user)
	if err := s.setCurrent(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

type identityProfile struct {
	Email   string
	Name    string
	Picture string
}

// decodeIdentityToken extracts profile claims from the token payload
// without verifying the signature.
func decodeIdentityToken(token string) (identityProfile, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return identityProfile{}, fmt.Errorf("%w: %v", ErrIdentityDecode, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return identityProfile{}, ErrIdentityDecode
	}

	email, _ := claims["email"].(string)
	email = sanitize.Email(email)
	if email == "" {
		return identityProfile{}, fmt.Errorf("%w: no email claim", ErrIdentityDecode)
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	picture, _ := claims["picture"].(string)

	return identityProfile{Email: email, Name: name, Picture: picture}, nil
}

func (s *Service) upsertIdentityUser(ctx context.Context, profile identityProfile, locale string) (store.Document, error) {
	existing, err := s.findByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		update := store.Document{"displayName": profile.Name}
		if profile.Picture != "" {
			update["profilePic"] = profile.Picture
		}
		if err := s.docs.UpdateOne(ctx, usersCollection, existing.ID(), update); err != nil {
			return nil, err
		}
		return s.docs.GetOne(ctx, usersCollection, existing.ID())
	}

	avatar := profile.Picture
	if avatar == "" {
		avatar = avatarURL(profile.Name)
	}
	user := store.Document{
		"id":             uuid.NewString(),
		"displayName":    profile.Name,
		"email":          profile.Email,
		"role":           "Student",
		"socialPoints":   welcomePoints,
		"unlockedBadges": []any{},
		"avatar":         avatar,
		"profilePic":     avatar,
		"preferences":    defaultPreferences(locale),
	}
	id, err := s.docs.AddOne(ctx, usersCollection, user)
	if err != nil {
		return nil, err
	}
	return s.docs.GetOne(ctx, usersCollection, id)
}
