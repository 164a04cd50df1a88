package store

import (
	"errors"
	"testing"
)

func TestSettingsGetMissing(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))

	_, err := ss.Get(KeyDefaultTime)
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("err = %v, want ErrSettingNotFound", err)
	}
}

func TestSettingsSetAndOverwrite(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))

	if err := ss.Set(KeyDefaultTime, "16:05"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ss.Set(KeyDefaultTime, "09:30"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := ss.Get(KeyDefaultTime)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "09:30" {
		t.Errorf("value = %q, want 09:30", got)
	}
}
