package store

import "context"

// Preferences (language, theme) live under reserved unprefixed keys as
// plain scalar strings, outside the collection model.
const settingPrefix = "ataa_"

// Setting reads a user-facing preference scalar. An unset preference
// reads as "".
func (s *Store) Setting(ctx context.Context, name string) (string, error) {
	raw, found, err := s.backing.Get(ctx, settingPrefix+name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return string(raw), nil
}

// SetSetting writes a user-facing preference scalar.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	return s.backing.Set(ctx, settingPrefix+name, []byte(value))
}
