package server

import (
	"context"
	"net/http"

	"github.com/villagehub/chatcore/internal/domain"
	"github.com/villagehub/chatcore/internal/service"
	"github.com/villagehub/chatcore/internal/utils"
)

type contextKey string

const resolutionKey contextKey = "resolution"

// IdentityMiddleware resolves the acting identity for every request: a
// member from a bearer token, a guest from a helpline deep-link, or a 401.
// Browsers cannot set headers on websocket dials, so a `token` query
// parameter is accepted as a bearer fallback.
func IdentityMiddleware(secret string, identitySrv service.IdentityServiceIn) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			in := &service.ResolveInput{
				GuestToken:   r.URL.Query().Get("guest_token"),
				WantHelpline: r.URL.Query().Get("intent") == "helpline",
			}

			tokenString := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				extracted, err := utils.ExtractToken(authHeader)
				if err != nil {
					handleError(w, err)
					return
				}
				tokenString = extracted
			} else if queryToken := r.URL.Query().Get("token"); queryToken != "" {
				tokenString = queryToken
			}

			if tokenString != "" {
				claims, err := utils.ValidateAccessToken(tokenString, secret)
				if err != nil {
					handleError(w, err)
					return
				}
				in.MemberID = claims.MemberID
			}

			res, err := identitySrv.Resolve(r.Context(), in)
			if err != nil {
				handleError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), resolutionKey, res)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetResolutionFromContext(ctx context.Context) (*service.Resolution, error) {
	res, ok := ctx.Value(resolutionKey).(*service.Resolution)
	if !ok {
		return nil, domain.ErrNotAuthenticated
	}
	return res, nil
}
