package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingBotToken = errors.New("telegram bot token is not configured")
	ErrMalformed       = errors.New("malformed init data")
	ErrBadSignature    = errors.New("invalid telegram signature")
	ErrExpired         = errors.New("auth data expired")
)

// webAppKey is the HMAC key Telegram uses to derive the WebApp secret.
const webAppKey = "WebAppData"

// Identity is the verified Telegram account behind a login.
type Identity struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
	AuthDate   time.Time
}

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// Verifier checks Telegram WebApp initData signatures.
type Verifier struct {
	botToken string
	window   time.Duration
	now      func() time.Time
}

func NewVerifier(botToken string, window time.Duration, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{botToken: botToken, window: window, now: now}
}

// Verify validates initData and returns the identity it carries.
//
// Behavior:
//   - Every field except hash is sorted by key and joined as key=value lines.
//   - The expected hash is hex(HMAC-SHA256(HMAC-SHA256("WebAppData", botToken), check)),
//     compared in constant time.
//   - auth_date older than the freshness window is rejected even with a valid hash.
//   - The identity comes from the user JSON field; flat Login Widget fields
//     (id, first_name, ...) are accepted when user is absent.
func (v *Verifier) Verify(initData string) (*Identity, error) {
	if v.botToken == "" {
		return nil, ErrMissingBotToken
	}

	values, err := url.ParseQuery(initData)
	if err != nil || len(values) == 0 {
		return nil, ErrMalformed
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMalformed
	}
	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}

	expected := Sign(v.botToken, values)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, ErrBadSignature
	}

	authDate := time.Unix(authUnix, 0).UTC()
	if v.now().Sub(authDate) > v.window {
		return nil, ErrExpired
	}

	id, err := identityFrom(values)
	if err != nil {
		return nil, err
	}
	id.AuthDate = authDate
	return id, nil
}

// Sign computes the hash Telegram attaches to values. The hash field itself
// is ignored.
func Sign(botToken string, values url.Values) string {
	secret := hmacSHA256([]byte(webAppKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(checkString(values))))
}

func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

func identityFrom(values url.Values) (*Identity, error) {
	var tu telegramUser
	if raw := values.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tu); err != nil {
			return nil, ErrMalformed
		}
	} else {
		id, err := strconv.ParseInt(values.Get("id"), 10, 64)
		if err != nil {
			return nil, ErrMalformed
		}
		tu = telegramUser{
			ID:        id,
			FirstName: values.Get("first_name"),
			LastName:  values.Get("last_name"),
			Username:  values.Get("username"),
			PhotoURL:  values.Get("photo_url"),
		}
	}
	if tu.ID == 0 {
		return nil, ErrMalformed
	}
	return &Identity{
		TelegramID: tu.ID,
		FirstName:  tu.FirstName,
		LastName:   tu.LastName,
		Username:   tu.Username,
		PhotoURL:   tu.PhotoURL,
	}, nil
}
