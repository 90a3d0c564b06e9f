package signedlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

var (
	ErrMalformed        = errors.New("malformed payload")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("link expired")
)

// Claims — содержимое подписанной ссылки. Действие зашито в подпись:
// подменить action=reject на action=approve в URL нельзя.
type Claims struct {
	RequestUUID string `json:"rid"`
	Action      Action `json:"act"`
	ExpiresAt   int64  `json:"exp"` // unix seconds
	Nonce       string `json:"nonce"`
}

// Signer выпускает и проверяет подписанные approve/reject ссылки,
// по которым администратор решает судьбу заявки без логина.
type Signer struct {
	Secret  []byte
	TTL     time.Duration
	BaseURL string // напр. https://app.example.com
}

func New(secret string, ttl time.Duration, baseURL string) *Signer {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Signer{Secret: []byte(secret), TTL: ttl, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Canonical string — фиксированный порядок полей, независимо от JSON.
func canonical(c Claims) string {
	return strings.Join([]string{
		"v1",
		c.RequestUUID,
		string(c.Action),
		strconv.FormatInt(c.ExpiresAt, 10),
		c.Nonce,
	}, "\n")
}

func (s *Signer) sign(c Claims) string {
	m := hmac.New(sha256.New, s.Secret)
	m.Write([]byte(canonical(c)))
	return hex.EncodeToString(m.Sum(nil))
}

// Issue строит ссылку на решение по заявке. Параметр action в URL —
// справочный, для текста письма; проверяется только подписанный payload.
func (s *Signer) Issue(requestUUID string, action Action) (*url.URL, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, errors.New("unknown action: " + string(action))
	}
	c := Claims{
		RequestUUID: requestUUID,
		Action:      action,
		ExpiresAt:   time.Now().UTC().Add(s.TTL).Unix(),
		Nonce:       uuid.NewString(),
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(s.BaseURL + "/api/v1/access-requests/approve")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("payload", base64.RawURLEncoding.EncodeToString(raw))
	q.Set("sig", s.sign(c))
	q.Set("action", string(c.Action))
	u.RawQuery = q.Encode()
	return u, nil
}

// Verify разбирает payload и проверяет срок и подпись.
// Порядок: malformed -> expired -> signature; просроченная ссылка
// всегда отвечает ErrExpired. Никаких side effects здесь нет.
func (s *Signer) Verify(payload, sig string, now time.Time) (Claims, error) {
	var c Claims

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Claims{}, ErrMalformed
	}
	if c.RequestUUID == "" || c.ExpiresAt == 0 {
		return Claims{}, ErrMalformed
	}
	if c.Action != ActionApprove && c.Action != ActionReject {
		return Claims{}, ErrMalformed
	}

	if now.UTC().Unix() > c.ExpiresAt {
		return Claims{}, ErrExpired
	}

	want := s.sign(c)
	// Сравнение с постоянным временем
	if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(want)) {
		return Claims{}, ErrInvalidSignature
	}
	return c, nil
}
