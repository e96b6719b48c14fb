package auth_test

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/sloi/internal/app/apptest"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/service/auth"
)

const botToken = apptest.BotToken

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newVerifier() *auth.Verifier {
	return auth.NewVerifier(botToken, 600*time.Second, func() time.Time { return now })
}

func sampleUser() map[string]any {
	return map[string]any{
		"id":         int64(279058397),
		"first_name": "Anna",
		"last_name":  "K",
		"username":   "anna_k",
		"photo_url":  "https://t.me/i/userpic/320/anna.jpg",
	}
}

func TestVerify_AcceptsFreshSignedPayload(t *testing.T) {
	data := apptest.InitData(t, botToken, now.Add(-time.Minute), sampleUser())

	id, err := newVerifier().Verify(data)
	require.NoError(t, err)
	assert.Equal(t, int64(279058397), id.TelegramID)
	assert.Equal(t, "Anna", id.FirstName)
	assert.Equal(t, "anna_k", id.Username)
	assert.Equal(t, "https://t.me/i/userpic/320/anna.jpg", id.PhotoURL)
	assert.Equal(t, now.Add(-time.Minute).Unix(), id.AuthDate.Unix())
}

func TestVerify_RejectsAnyMutatedField(t *testing.T) {
	signed, err := url.ParseQuery(apptest.InitData(t, botToken, now, sampleUser()))
	require.NoError(t, err)

	for key := range signed {
		if key == "hash" {
			continue
		}
		t.Run(key, func(t *testing.T) {
			mutated := url.Values{}
			for k, v := range signed {
				mutated[k] = append([]string(nil), v...)
			}
			orig := mutated.Get(key)
			// flip one bit of the last byte
			b := []byte(orig)
			b[len(b)-1] ^= 0x01
			mutated.Set(key, string(b))

			_, err := newVerifier().Verify(mutated.Encode())
			assert.Error(t, err)
		})
	}

	t.Run("hash", func(t *testing.T) {
		mutated, _ := url.ParseQuery(signed.Encode())
		h := []byte(mutated.Get("hash"))
		if h[0] == 'a' {
			h[0] = 'b'
		} else {
			h[0] = 'a'
		}
		mutated.Set("hash", string(h))
		_, err := newVerifier().Verify(mutated.Encode())
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})

	t.Run("hash case", func(t *testing.T) {
		hash := signed.Get("hash")
		flipped := 0
		for i := range hash {
			if hash[i] < 'a' || hash[i] > 'f' {
				continue
			}
			h := []byte(hash)
			h[i] ^= 0x20
			mutated, _ := url.ParseQuery(signed.Encode())
			mutated.Set("hash", string(h))
			_, err := newVerifier().Verify(mutated.Encode())
			assert.ErrorIs(t, err, auth.ErrBadSignature, "upper-cased hex at %d", i)
			flipped++
		}
		require.NotZero(t, flipped)
	})
}

func TestVerify_RejectsStalePayloadWithValidHash(t *testing.T) {
	data := apptest.InitData(t, botToken, now.Add(-601*time.Second), sampleUser())
	_, err := newVerifier().Verify(data)
	assert.ErrorIs(t, err, auth.ErrExpired)

	data = apptest.InitData(t, botToken, now.Add(-600*time.Second), sampleUser())
	_, err = newVerifier().Verify(data)
	assert.NoError(t, err, "exactly at the window edge is still fresh")
}

func TestVerify_WrongBotToken(t *testing.T) {
	data := apptest.InitData(t, "other:token", now, sampleUser())
	_, err := newVerifier().Verify(data)
	assert.ErrorIs(t, err, auth.ErrBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	v := newVerifier()

	_, err := v.Verify("")
	assert.ErrorIs(t, err, auth.ErrMalformed)

	_, err = v.Verify("auth_date=1&user=%7B%7D")
	assert.ErrorIs(t, err, auth.ErrMalformed, "no hash")

	values := url.Values{}
	values.Set("auth_date", "not-a-number")
	values.Set("hash", auth.Sign(botToken, values))
	_, err = v.Verify(values.Encode())
	assert.ErrorIs(t, err, auth.ErrMalformed)

	values = url.Values{}
	values.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	values.Set("user", "{not json")
	values.Set("hash", auth.Sign(botToken, values))
	_, err = v.Verify(values.Encode())
	assert.ErrorIs(t, err, auth.ErrMalformed)
}

func TestVerify_MissingBotToken(t *testing.T) {
	v := auth.NewVerifier("", time.Minute, nil)
	_, err := v.Verify(apptest.InitData(t, botToken, now, sampleUser()))
	assert.ErrorIs(t, err, auth.ErrMissingBotToken)
}

func TestVerify_LoginWidgetFields(t *testing.T) {
	values := url.Values{}
	values.Set("id", "42")
	values.Set("first_name", "Ivan")
	values.Set("auth_date", strconv.FormatInt(now.Unix(), 10))
	values.Set("hash", auth.Sign(botToken, values))

	id, err := newVerifier().Verify(values.Encode())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.TelegramID)
	assert.Equal(t, "Ivan", id.FirstName)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	clock := now
	issuer := auth.NewTokenIssuer("secret", time.Hour, func() time.Time { return clock })
	u := &db.User{ID: "0b7c1a2e-0000-4000-8000-000000000001", TelegramID: 42}

	tok, exp, err := issuer.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, int64(42), claims.TelegramID)

	_, err = auth.NewTokenIssuer("other", time.Hour, func() time.Time { return clock }).Parse(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	clock = now.Add(2 * time.Hour)
	_, err = issuer.Parse(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "expired")
}
