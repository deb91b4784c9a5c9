package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/product-catalog-api/internal/model"
)

type memRevocations struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	revokeErr error
	checkErr  error
}

var _ RevocationStore = (*memRevocations)(nil)

func (m *memRevocations) Revoke(_ context.Context, jti string, exp time.Time) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Time{}
	}
	m.revoked[jti] = exp
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func newTestIssuer(store RevocationStore) *JWTIssuer {
	return NewJWTIssuer("test-secret", time.Hour, "catalog-test", store)
}

func TestJWTIssuer_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})

	tok, err := iss.Issue(ctx, 42, model.RoleClient)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Raw)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := iss.Verify(ctx, tok.Raw)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, model.RoleClient, claims.Role)
	assert.Equal(t, "catalog-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTIssuer_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})
	a, err := iss.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)
	b, err := iss.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)

	ca, err := iss.Verify(ctx, a.Raw)
	require.NoError(t, err)
	cb, err := iss.Verify(ctx, b.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTIssuer_Expired(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := iss.Issue(ctx, 7, model.RoleUser)
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(ctx, tok.Raw)
	require.ErrorIs(t, err, ErrExpiredToken)
	require.ErrorIs(t, iss.Invalidate(ctx, tok.Raw), ErrExpiredToken)
}

func TestJWTIssuer_RejectsTampering(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})
	other := NewJWTIssuer("other-secret", time.Hour, "catalog-test", &memRevocations{})

	tok, err := other.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)
	_, err = iss.Verify(ctx, tok.Raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Verify(ctx, "not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Verify(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_RejectsWrongIssuer(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})
	foreign := NewJWTIssuer("test-secret", time.Hour, "someone-else", &memRevocations{})

	tok, err := foreign.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)
	_, err = iss.Verify(ctx, tok.Raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_RejectsNoneAlgAndMissingClaims(t *testing.T) {
	ctx := context.Background()
	iss := newTestIssuer(&memRevocations{})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "jti": "x", "iss": "catalog-test", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	noJTI := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "iss": "catalog-test", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err = noJTI.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = iss.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "jti": "x", "iss": "catalog-test", "exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err = badSub.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = iss.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIssuer_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := &memRevocations{}
	iss := newTestIssuer(store)

	tok, err := iss.Issue(ctx, 5, model.RoleAdmin)
	require.NoError(t, err)
	other, err := iss.Issue(ctx, 5, model.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, iss.Invalidate(ctx, tok.Raw))

	_, err = iss.Verify(ctx, tok.Raw)
	require.ErrorIs(t, err, ErrRevokedToken)
	require.ErrorIs(t, iss.Invalidate(ctx, tok.Raw), ErrRevokedToken)

	// only the presented token is affected
	_, err = iss.Verify(ctx, other.Raw)
	require.NoError(t, err)
}

func TestJWTIssuer_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")

	iss := newTestIssuer(&memRevocations{checkErr: boom})
	tok, err := iss.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)
	_, err = iss.Verify(ctx, tok.Raw)
	require.ErrorIs(t, err, boom)

	iss = newTestIssuer(&memRevocations{revokeErr: boom})
	tok, err = iss.Issue(ctx, 1, model.RoleUser)
	require.NoError(t, err)
	require.ErrorIs(t, iss.Invalidate(ctx, tok.Raw), boom)
}
