package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxInitDataAge bounds how old a signed init data payload may be before
// it is rejected as replayable.
const MaxInitDataAge = 24 * time.Hour

// VerifyTelegramInitData checks the Mini App signature: the secret key is
// HMAC-SHA256 of the bot token keyed with "WebAppData", and the hash field
// must equal HMAC-SHA256 of the sorted data-check-string under that key.
// An empty botToken skips signature and age checks, which keeps local
// development without a bot usable.
func VerifyTelegramInitData(initData, botToken string, now time.Time) error {
	if strings.TrimSpace(initData) == "" {
		return fmt.Errorf("init data is empty: %w", ErrInvalidInput)
	}
	if botToken == "" {
		return nil
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return fmt.Errorf("parse init data: %w", ErrInvalidInput)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return fmt.Errorf("init data hash missing: %w", ErrUnauthorized)
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(gotHash), []byte(wantHash)) {
		return fmt.Errorf("init data signature mismatch: %w", ErrUnauthorized)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return fmt.Errorf("init data auth_date invalid: %w", ErrUnauthorized)
	}
	if now.Sub(time.Unix(authDate, 0)) > MaxInitDataAge {
		return fmt.Errorf("init data expired: %w", ErrUnauthorized)
	}
	return nil
}

// ParseTelegramProfile extracts the user payload from init data. Bare
// numeric payloads and user_id-style query params are accepted so tests
// and development clients do not need a fully signed blob.
func ParseTelegramProfile(initData string) (TelegramProfile, error) {
	trimmed := strings.TrimSpace(initData)
	if trimmed == "" {
		return TelegramProfile{}, fmt.Errorf("init data is empty: %w", ErrInvalidInput)
	}

	if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil && parsed > 0 {
		return TelegramProfile{ID: parsed}, nil
	}

	query, err := url.ParseQuery(trimmed)
	if err != nil || len(query) == 0 {
		return TelegramProfile{}, fmt.Errorf("init data unparsable: %w", ErrInvalidInput)
	}

	if rawUser := query.Get("user"); rawUser != "" {
		var profile TelegramProfile
		if unmarshalErr := json.Unmarshal([]byte(rawUser), &profile); unmarshalErr == nil && profile.ID > 0 {
			return profile, nil
		}
	}

	for _, key := range []string{"user_id", "id", "tg_user_id"} {
		if value := query.Get(key); value != "" {
			parsed, parseErr := strconv.ParseInt(value, 10, 64)
			if parseErr == nil && parsed > 0 {
				return TelegramProfile{ID: parsed}, nil
			}
		}
	}

	return TelegramProfile{}, fmt.Errorf("init data has no user: %w", ErrInvalidInput)
}
