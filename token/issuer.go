package token

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Purpose scopes a token to one flow. A token issued for one purpose never validates for another.
type Purpose string

const (
	PurposeConfirmEmail  Purpose = "confirm-email"
	PurposeResetPassword Purpose = "reset-password"
)

const (
	defaultIssuer           = "forum-accounts"
	defaultConfirmEmailTTL  = 24 * time.Hour
	defaultResetPasswordTTL = 3 * time.Hour
)

// Claims is the payload of a verification token. Subject is the user id and ID (jti) is the
// key of the single-use ledger. Stamp is the user's security stamp at issue time, a token
// stops validating once the stamp moves on.
type Claims struct {
	Purpose Purpose `json:"pur"`
	Stamp   string  `json:"stp,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates and consumes purpose-scoped, expiring, single-use tokens
type Issuer struct {
	signer  Signer
	used    UsedTokens
	issuer  string
	ttls    map[Purpose]time.Duration
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

// WithTTL sets the lifetime of tokens issued for purpose
func WithTTL(purpose Purpose, ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttls[purpose] = ttl
		}
	}
}

func NewIssuer(signer Signer, used UsedTokens, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if used == nil {
		return nil, errors.New("[NewIssuer] used token ledger is required")
	}

	i := &Issuer{
		signer: signer,
		used:   used,
		issuer: defaultIssuer,
		ttls: map[Purpose]time.Duration{
			PurposeConfirmEmail:  defaultConfirmEmailTTL,
			PurposeResetPassword: defaultResetPasswordTTL,
		},
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Issue creates a token for purpose bound to userID and the user's current security stamp
func (i *Issuer) Issue(_ context.Context, purpose Purpose, userID, stamp string) (string, error) {
	ttl, ok := i.ttls[purpose]
	if !ok {
		return "", errors.Errorf("[Issuer.Issue] unknown purpose %q", purpose)
	}
	if userID == "" {
		return "", errors.New("[Issuer.Issue] user id is required")
	}

	now := i.nowFunc()
	claims := Claims{
		Purpose: purpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	raw, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] sign")
	}
	return raw, nil
}

// Verify checks signature, expiry, purpose, subject and stamp without consuming the token.
// Every failure matches errors.ErrInvalidToken.
func (i *Issuer) Verify(purpose Purpose, userID, stamp, raw string) (*Claims, error) {
	if raw == "" || userID == "" {
		return nil, apperrors.ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
		jwt.WithSubject(userID),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, invalid(apperrors.ErrTokenExpired)
		}
		return nil, invalid(err)
	}
	if !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, invalid(errors.Errorf("purpose %q does not match %q", claims.Purpose, purpose))
	}
	if claims.ID == "" {
		return nil, invalid(errors.New("missing token id"))
	}
	if subtle.ConstantTimeCompare([]byte(claims.Stamp), []byte(stamp)) != 1 {
		return nil, invalid(apperrors.ErrTokenSuperseded)
	}
	return claims, nil
}

// Redeem verifies the token, marks it used and runs apply. When apply fails the token is
// released again so the user can retry the same link. A second Redeem of the same token fails
// with an error matching both errors.ErrInvalidToken and errors.ErrTokenConsumed. Ledger
// failures are returned as they are so callers can tell them apart from bad tokens.
func (i *Issuer) Redeem(ctx context.Context, purpose Purpose, userID, stamp, raw string, apply func(context.Context) error) error {
	claims, err := i.Verify(purpose, userID, stamp, raw)
	if err != nil {
		return err
	}

	first, err := i.used.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return errors.Wrap(err, "[Issuer.Redeem] ledger")
	}
	if !first {
		return invalid(apperrors.ErrTokenConsumed)
	}
	if apply == nil {
		return nil
	}

	if err := apply(ctx); err != nil {
		if releaseErr := i.used.Release(context.WithoutCancel(ctx), claims.ID); releaseErr != nil {
			log.Err(releaseErr).Str("user_id", userID).Msg("token not released after failed redeem")
		}
		return err
	}
	return nil
}

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, reason)
}
