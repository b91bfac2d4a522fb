package service

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/villagehub/chatcore/internal/domain"
)

// IdentityService picks exactly one acting identity for a session: a member
// when a session exists, a guest when only a helpline deep-link does, and an
// error otherwise.
type IdentityService struct {
	members  MemberRepoIn
	presence PresenceRepoIn
}

func NewIdentityService(members MemberRepoIn, presence PresenceRepoIn) IdentityServiceIn {
	return &IdentityService{
		members:  members,
		presence: presence,
	}
}

func (is *IdentityService) Resolve(ctx context.Context, in *ResolveInput) (*Resolution, error) {
	if in.MemberID != "" {
		member, err := is.members.GetMember(ctx, in.MemberID)
		if err != nil {
			return nil, domain.ErrNotAuthenticated
		}

		// Merge, not overwrite: presence keeps whatever other fields it has.
		is.touchPresence(ctx, member.ID)

		// The member row staffing the helpline acts as the helpline itself,
		// which is what lets it answer guests.
		identity := member.Identity()
		if member.ID == domain.HelplineID {
			identity = domain.Helpline()
		}

		return &Resolution{
			Identity:     identity,
			OpenHelpline: in.WantHelpline,
		}, nil
	}

	if !in.WantHelpline {
		return nil, domain.ErrNotAuthenticated
	}

	// Helpline deep-link without a member session: mint or reuse the guest
	// token. The token is persisted by the client and sent back on reconnect.
	token := in.GuestToken
	minted := ""
	if token == "" {
		var err error
		token, err = mintGuestToken()
		if err != nil {
			return nil, domain.ErrInternalServerError
		}
		minted = token
	}

	return &Resolution{
		Identity:         domain.NewGuest(token),
		OpenHelpline:     true,
		MintedGuestToken: minted,
	}, nil
}

// touchPresence is best effort: a presence blip must never block resolution.
func (is *IdentityService) touchPresence(ctx context.Context, memberID string) {
	backoff := retry.WithMaxRetries(2, retry.NewConstant(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := is.presence.SetStatus(ctx, memberID, domain.StatusOnline); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to update presence", "member_id", memberID, "error", err)
	}
}

func mintGuestToken() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
