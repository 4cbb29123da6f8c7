package signedlink

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned for tokens that do not have the expected shape.
	ErrMalformed = errors.New("invalid token format")
	// ErrSignature is returned when the HMAC does not match.
	ErrSignature = errors.New("invalid token signature")
	// ErrExpired is returned once the embedded expiry has passed.
	ErrExpired = errors.New("token expired")
)

// Claims is the payload carried by a receipt share token.
type Claims struct {
	TransactionID string
	ReceiptNumber string
	ExpiresAt     time.Time
}

// Signer creates and validates receipt share tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long issued tokens stay valid.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Generate returns a URL-safe token referencing the transaction and its receipt number.
func (s *Signer) Generate(transactionID, receiptNumber string) (string, time.Time, error) {
	if transactionID == "" || receiptNumber == "" {
		return "", time.Time{}, fmt.Errorf("transaction id and receipt number required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedTxn := base64.RawURLEncoding.EncodeToString([]byte(transactionID))
	encodedReceipt := base64.RawURLEncoding.EncodeToString([]byte(receiptNumber))
	signature := s.sign(encodedTxn, encodedReceipt, ts)
	return strings.Join([]string{encodedTxn, encodedReceipt, ts, signature}, "."), expiresAt, nil
}

// Parse validates a token and returns the embedded claims.
func (s *Signer) Parse(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrMalformed
	}
	encodedTxn, encodedReceipt, ts, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedTxn, encodedReceipt, ts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignature
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}
	txnID, err := base64.RawURLEncoding.DecodeString(encodedTxn)
	if err != nil {
		return nil, ErrMalformed
	}
	receipt, err := base64.RawURLEncoding.DecodeString(encodedReceipt)
	if err != nil {
		return nil, ErrMalformed
	}

	claims := &Claims{
		TransactionID: string(txnID),
		ReceiptNumber: string(receipt),
		ExpiresAt:     time.Unix(expUnix, 0).UTC(),
	}
	if s.now().After(claims.ExpiresAt) {
		return nil, ErrExpired
	}
	return claims, nil
}

func (s *Signer) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
