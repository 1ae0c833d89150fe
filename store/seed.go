package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates a fresh backing store with the demo dataset: one admin
// account, one approved item and empty requests/conversations. It runs
// once; a backing store whose users collection is non-empty is left
// untouched.
func (s *Store) Seed(ctx context.Context) error {
	users, _, err := s.readCollection(ctx, "users")
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	admin := Document{
		"id":             "admin",
		"displayName":    "Ataa Admin",
		"email":          "admin@ataa.edu",
		"passwordHash":   string(hash),
		"role":           "Admin",
		"socialPoints":   2500,
		"avatar":         "https://api.dicebear.com/7.x/bottts-neutral/svg?seed=AtaaAdmin",
		"profilePic":     "https://api.dicebear.com/7.x/bottts-neutral/svg?seed=AtaaAdmin",
		"unlockedBadges": []any{"ataa-legend", "eco-hero"},
		"preferences": map[string]any{
			"theme":              "system",
			"language":           "ar",
			"notifications":      map[string]any{"email": true, "inApp": true},
			"privacyShowHistory": true,
		},
	}
	if err := s.writeCollection(ctx, "users", []Document{admin}); err != nil {
		return err
	}

	item := Document{
		"id":             "item-seed-1",
		"name":           "Geometry Kit",
		"description":    "Complete geometry set in excellent condition.",
		"category":       "Stationery",
		"condition":      "Like New",
		"pickupLocation": "Building A - Library",
		"imageUrl":       "https://images.unsplash.com/photo-1588072432836-e10032774350?auto=format&fit=crop&w=900&q=80",
		"donorId":        "admin",
		"donorName":      "Ataa Admin",
		"donorEmail":     "admin@ataa.edu",
		"isAvailable":    true,
		"status":         "approved",
		"createdAt":      time.Now().UnixMilli(),
	}
	if err := s.writeCollection(ctx, "items", []Document{item}); err != nil {
		return err
	}

	for _, name := range []string{"requests", "conversations"} {
		if _, exists, err := s.readCollection(ctx, name); err != nil {
			return err
		} else if !exists {
			if err := s.writeCollection(ctx, name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
