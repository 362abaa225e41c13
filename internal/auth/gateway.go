package auth

import (
	"context"
	"fmt"
	"log/slog"

	"wacampaign/internal/domain"
)

type Sender interface {
	SendMessage(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error)
}

// Gateway rejects a send before it reaches the transport unless the token is
// valid, belongs to the user, and the user may send campaigns.
type Gateway struct {
	Issuer *TokenIssuer
	Sender Sender
}

func (g *Gateway) Send(ctx context.Context, token string, u User, p domain.SendPayload) (domain.SendResponse, error) {
	claims, err := g.Issuer.Validate(token)
	if err != nil {
		slog.Warn("send refused", "user_id", u.ID, "err", err)
		return domain.SendResponse{}, err
	}
	if claims.Subject != u.ID {
		return domain.SendResponse{}, fmt.Errorf("%w: token issued to %s", ErrTokenInvalid, claims.Subject)
	}
	if err := Authorize(u, CapSendCampaigns); err != nil {
		slog.Warn("send refused", "user_id", u.ID, "role", u.Role, "err", err)
		return domain.SendResponse{}, err
	}
	return g.Sender.SendMessage(ctx, p)
}
