package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villagehub/chatcore/internal/domain"
	"github.com/villagehub/chatcore/internal/service"
	"github.com/villagehub/chatcore/internal/utils"
)

const testSecret = "test-secret"

type stubIdentityService struct {
	lastInput *service.ResolveInput
	res       *service.Resolution
	err       error
}

func (s *stubIdentityService) Resolve(_ context.Context, in *service.ResolveInput) (*service.Resolution, error) {
	s.lastInput = in
	return s.res, s.err
}

func signToken(t *testing.T, memberID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &utils.AccessClaims{MemberID: memberID})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func serveThrough(t *testing.T, stub *stubIdentityService, req *http.Request) (*httptest.ResponseRecorder, *service.Resolution) {
	t.Helper()

	var seen *service.Resolution
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := GetResolutionFromContext(r.Context())
		require.NoError(t, err)
		seen = res
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	IdentityMiddleware(testSecret, stub)(inner).ServeHTTP(rec, req)
	return rec, seen
}

func TestIdentityMiddleware(t *testing.T) {
	memberRes := &service.Resolution{Identity: domain.Member{ID: "M1", DisplayName: "Asha"}.Identity()}

	t.Run("bearer header resolves the member", func(t *testing.T) {
		stub := &stubIdentityService{res: memberRes}
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "M1"))

		rec, seen := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, stub.lastInput)
		assert.Equal(t, "M1", stub.lastInput.MemberID)
		require.NotNil(t, seen)
		assert.Equal(t, "M1", seen.Identity.ID)
	})

	t.Run("token query parameter works for websocket dials", func(t *testing.T) {
		stub := &stubIdentityService{res: memberRes}
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, "M1"), nil)

		rec, _ := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, stub.lastInput)
		assert.Equal(t, "M1", stub.lastInput.MemberID)
	})

	t.Run("guest token and helpline intent pass through", func(t *testing.T) {
		stub := &stubIdentityService{res: &service.Resolution{
			Identity:     domain.NewGuest("123456"),
			OpenHelpline: true,
		}}
		req := httptest.NewRequest(http.MethodGet, "/ws?guest_token=123456&intent=helpline", nil)

		rec, seen := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, stub.lastInput)
		assert.Equal(t, "123456", stub.lastInput.GuestToken)
		assert.True(t, stub.lastInput.WantHelpline)
		assert.Empty(t, stub.lastInput.MemberID)
		require.NotNil(t, seen)
		assert.True(t, seen.Identity.IsGuest())
	})

	t.Run("tampered token is rejected before resolving", func(t *testing.T) {
		stub := &stubIdentityService{res: memberRes}
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")

		rec, _ := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, stub.lastInput)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		stub := &stubIdentityService{res: memberRes}
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.Header.Set("Authorization", signToken(t, "M1"))

		rec, _ := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolve failure surfaces its status", func(t *testing.T) {
		stub := &stubIdentityService{err: domain.ErrNotAuthenticated}
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)

		rec, _ := serveThrough(t, stub, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
