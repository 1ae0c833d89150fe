// Package auth is the session shim: a single "current user" record under
// a reserved key, with listener registration mimicking an auth-state
// API, plus email/password flows against the users collection and an
// external identity handshake. It trusts its caller; there is no
// authorization enforcement anywhere in this layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ataa/localbase/sanitize"
	"ataa/localbase/store"
)

// CurrentUserKey is the reserved backing-store key holding the session
// user. Absence means "guest".
const CurrentUserKey = "ataa_current_user"

const usersCollection = "users"

var (
	// ErrInvalidCredentials covers both unknown email and wrong
	// password; the two are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already in use")
	// ErrInvalidProfile reports a supplied profile field that failed
	// validation (phone, region).
	ErrInvalidProfile = errors.New("invalid profile field")
)

// Service provides the session shim over a document store handle.
type Service struct {
	docs     *store.Store
	clientID string
	tokens   TokenSource

	mu           sync.Mutex
	listeners    map[int]func(store.Document)
	nextListener int
}

// New builds a Service. clientID and tokens configure the external
// identity handshake; both may be zero when that sign-in path is unused.
func New(docs *store.Store, clientID string, tokens TokenSource) *Service {
	return &Service{
		docs:      docs,
		clientID:  clientID,
		tokens:    tokens,
		listeners: make(map[int]func(store.Document)),
	}
}

// CurrentUser returns the session user, or nil for a guest session.
func (s *Service) CurrentUser(ctx context.Context) (store.Document, error) {
	return s.docs.ReservedDoc(ctx, CurrentUserKey)
}

// OnChange registers an auth-state listener, invokes it once immediately
// with the current user (nil for guest) and returns a disposer. Listeners
// are notified synchronously after every login, signup, identity sign-in
// and logout performed through this Service.
func (s *Service) OnChange(ctx context.Context, cb func(store.Document)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = cb
	s.mu.Unlock()

	user, err := s.CurrentUser(ctx)
	if err != nil {
		user = nil
	}
	cb(user)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) notify(user store.Document) {
	s.mu.Lock()
	callbacks := make([]func(store.Document), 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(user)
	}
}

// Login authenticates against the users collection by case-insensitive
// email and bcrypt password compare, then replaces the session user.
func (s *Service) Login(ctx context.Context, email, password string) (store.Document, error) {
	email = sanitize.Email(email)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	hash := user.String("passwordHash")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session := sessionCopy(user)
	if err := s.setCurrent(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SignUpParams contains sign-up fields collected from the caller. Phone
// and Region are optional contact fields; when supplied they must pass
// validation.
type SignUpParams struct {
	Email       string
	Password    string
	DisplayName string
	Grade       string
	Language    string
	Phone       string
	Region      string
}

// SignUp creates a fresh Student profile, adopts any items donated during
// the guest session, and logs the new user in.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (store.Document, error) {
	email := sanitize.Email(params.Email)
	if email == "" || params.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if params.Phone != "" && !sanitize.ValidPhone(params.Phone) {
		return nil, fmt.Errorf("%w: phone", ErrInvalidProfile)
	}
	if params.Region != "" && !sanitize.ValidRegion(params.Region) {
		return nil, fmt.Errorf("%w: region", ErrInvalidProfile)
	}

	existing, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	displayName := sanitize.Text(params.DisplayName, sanitize.ShortMaxLen)
	user := store.Document{
		"id":             uuid.NewString(),
		"displayName":    displayName,
		"email":          email,
		"passwordHash":   string(hash),
		"grade":          params.Grade,
		"role":           "Student",
		"socialPoints":   welcomePoints,
		"unlockedBadges": []any{},
		"avatar":         avatarURL(displayName),
		"profilePic":     avatarURL(displayName),
		"preferences":    defaultPreferences(params.Language),
	}
	if params.Phone != "" {
		user["phone"] = sanitize.NormalizePhone(params.Phone)
	}
	if params.Region != "" {
		user["region"] = sanitize.Text(params.Region, sanitize.ShortMaxLen)
	}

	id, err := s.docs.AddOne(ctx, usersCollection, user)
	if err != nil {
		return nil, err
	}
	if err := s.adoptGuestItems(ctx, id, displayName); err != nil {
		return nil, err
	}

	stored, err := s.docs.GetOne(ctx, usersCollection, id)
	if err != nil {
		return nil, err
	}
	session := sessionCopy(stored)
	if err := s.setCurrent(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout deletes the session user and notifies listeners with nil.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.docs.DeleteReserved(ctx, CurrentUserKey); err != nil {
		return err
	}
	s.notify(nil)
	return nil
}

// UpdatePassword re-hashes the current user's password on their users
// document. The caller is trusted; no re-authentication is performed.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.docs.UpdateOne(ctx, usersCollection, user.ID(), store.Document{
		"passwordHash": string(hash),
	})
}

// setCurrent replaces the session user record and notifies listeners. A
// new login replaces the previous session outright, never merges into it.
func (s *Service) setCurrent(ctx context.Context, user store.Document) error {
	if err := s.docs.SetReservedDoc(ctx, CurrentUserKey, user); err != nil {
		return err
	}
	s.notify(user)
	return nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (store.Document, error) {
	users, err := s.docs.GetAll(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if sanitize.Email(user.String("email")) == email {
			return user, nil
		}
	}
	return nil, nil
}

// adoptGuestItems relinks items donated while browsing as a guest to the
// freshly created account.
func (s *Service) adoptGuestItems(ctx context.Context, userID, displayName string) error {
	items, err := s.docs.GetAll(ctx, "items")
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.String("donorId") != "guest" {
			continue
		}
		err := s.docs.UpdateOne(ctx, "items", item.ID(), store.Document{
			"donorId":   userID,
			"donorName": displayName,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// sessionCopy strips credential material before the user document is
// stored under the session key.
func sessionCopy(user store.Document) store.Document {
	session := user.Clone()
	delete(session, "passwordHash")
	return session
}

const welcomePoints = 50

func avatarURL(seed string) string {
	return "https://api.dicebear.com/7.x/bottts-neutral/svg?seed=" + url.QueryEscape(seed)
}

func defaultPreferences(language string) map[string]any {
	if language == "" {
		language = "en"
	}
	return map[string]any{
		"theme":              "system",
		"language":           language,
		"notifications":      map[string]any{"email": true, "inApp": true},
		"privacyShowHistory": true,
	}
}
