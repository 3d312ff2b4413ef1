package token_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testUserID = "user-1"
	testStamp  = "stamp-1"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupIssuer(t *testing.T, used token.UsedTokens, opts ...token.IssuerOption) (*token.Issuer, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	opts = append([]token.IssuerOption{token.WithNowFunc(c.Now)}, opts...)
	issuer, err := token.NewIssuer(token.NewHMACSigner(testSecret), used, opts...)
	require.NoError(t, err)
	return issuer, c
}

func TestIssuer_IssueAndRedeem(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.NoError(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil))
}

func TestIssuer_RedeemIsSingleUse(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
	require.NoError(t, err)

	require.NoError(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil))

	err = issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.ErrorIs(t, err, apperrors.ErrTokenConsumed)
}

func TestIssuer_RejectsOtherPurpose(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
	require.NoError(t, err)

	err = issuer.Redeem(ctx, token.PurposeResetPassword, testUserID, testStamp, raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	// The failed attempt must not have burned the token for its real purpose
	require.NoError(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil))
}

func TestIssuer_RejectsOtherUser(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeResetPassword, testUserID, testStamp)
	require.NoError(t, err)

	err = issuer.Redeem(ctx, token.PurposeResetPassword, "someone-else", testStamp, raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	issuer, c := setupIssuer(t, token.NewInMemoryUsedTokens(), token.WithTTL(token.PurposeResetPassword, time.Hour))
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeResetPassword, testUserID, testStamp)
	require.NoError(t, err)

	c.Advance(time.Hour + time.Minute)

	err = issuer.Redeem(ctx, token.PurposeResetPassword, testUserID, testStamp, raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestIssuer_RejectsForeignSignature(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	other, err := token.NewIssuer(token.NewHMACSigner("another-secret"), token.NewInMemoryUsedTokens())
	require.NoError(t, err)
	ctx := context.Background()

	raw, err := other.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
	require.NoError(t, err)

	err = issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestIssuer_RejectsGarbageAndEmpty(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	require.ErrorIs(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, "not-a-token", nil), apperrors.ErrInvalidToken)
	require.ErrorIs(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, "", nil), apperrors.ErrInvalidToken)
	require.ErrorIs(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, "", testStamp, "x", nil), apperrors.ErrInvalidToken)
}

func TestIssuer_IssueUnknownPurpose(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())

	_, err := issuer.Issue(context.Background(), token.Purpose("delete-account"), testUserID, testStamp)
	require.Error(t, err)
}

func TestIssuer_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, used := range map[string]token.UsedTokens{
		"memory": token.NewInMemoryUsedTokens(),
		"redis":  token.NewRedisUsedTokens(client),
	} {
		t.Run(name, func(t *testing.T) {
			issuer, _ := setupIssuer(t, used)
			ctx := context.Background()

			raw, err := issuer.Issue(ctx, token.PurposeResetPassword, testUserID, testStamp)
			require.NoError(t, err)

			var successes atomic.Int32
			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if issuer.Redeem(ctx, token.PurposeResetPassword, testUserID, testStamp, raw, nil) == nil {
						successes.Add(1)
					}
				}()
			}
			wg.Wait()

			require.Equal(t, int32(1), successes.Load())
		})
	}
}

func TestRedisUsedTokens_ExpireWithToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	used := token.NewRedisUsedTokens(client)
	ctx := context.Background()

	first, err := used.MarkUsed(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, first)

	first, err = used.MarkUsed(ctx, "jti-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.False(t, first)

	mr.FastForward(2 * time.Hour)
	require.False(t, mr.Exists("forum:used-token:jti-1"))
}

func TestRedisUsedTokens_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	issuer, _ := setupIssuer(t, token.NewRedisUsedTokens(client))
	ctx := context.Background()
	raw, err := issuer.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
	require.NoError(t, err)

	err = issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrInvalidToken, "infrastructure failures are not token failures")
}

func TestInMemoryUsedTokens_Cleanup(t *testing.T) {
	used := token.NewInMemoryUsedTokens()
	ctx := context.Background()

	_, err := used.MarkUsed(ctx, "old", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = used.MarkUsed(ctx, "fresh", time.Now().Add(time.Hour))
	require.NoError(t, err)

	used.Cleanup()
	require.Equal(t, 1, used.Len())
}

func TestIssuer_RejectsSupersededStamp(t *testing.T) {
	issuer, _ := setupIssuer(t, token.NewInMemoryUsedTokens())
	ctx := context.Background()

	raw, err := issuer.Issue(ctx, token.PurposeResetPassword, testUserID, testStamp)
	require.NoError(t, err)

	err = issuer.Redeem(ctx, token.PurposeResetPassword, testUserID, "stamp-2", raw, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.ErrorIs(t, err, apperrors.ErrTokenSuperseded)
}

func TestIssuer_RedeemReleasesTokenWhenApplyFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, used := range map[string]token.UsedTokens{
		"memory": token.NewInMemoryUsedTokens(),
		"redis":  token.NewRedisUsedTokens(client),
	} {
		t.Run(name, func(t *testing.T) {
			issuer, _ := setupIssuer(t, used)
			ctx := context.Background()

			raw, err := issuer.Issue(ctx, token.PurposeConfirmEmail, testUserID, testStamp)
			require.NoError(t, err)

			storeDown := errors.New("store unavailable")
			err = issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, func(context.Context) error {
				return storeDown
			})
			require.ErrorIs(t, err, storeDown)
			require.NotErrorIs(t, err, apperrors.ErrInvalidToken)

			applied := false
			require.NoError(t, issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, func(context.Context) error {
				applied = true
				return nil
			}))
			require.True(t, applied)

			err = issuer.Redeem(ctx, token.PurposeConfirmEmail, testUserID, testStamp, raw, nil)
			require.ErrorIs(t, err, apperrors.ErrTokenConsumed)
		})
	}
}
