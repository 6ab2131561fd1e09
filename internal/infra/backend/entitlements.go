package backend

import (
	"context"
	"fmt"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

const entitlementsURL = "/users/me/entitlements"

// Entitlements reads the ranked life pass from the backend.
type Entitlements struct {
	client *Client
}

var _ app.Entitlements = (*Entitlements)(nil)

func NewEntitlements(client *Client) *Entitlements {
	return &Entitlements{client: client}
}

type entitlementsResponse struct {
	LifePass bool `json:"lifePass"`
}

// LifePassActive is false for anonymous players without calling the backend.
func (e *Entitlements) LifePassActive(ctx context.Context, player domain.Player) (bool, error) {
	if !player.Authenticated {
		return false, nil
	}
	resp, err := e.client.request(ctx, player).Get(entitlementsURL)
	if err != nil {
		return false, fmt.Errorf("%w: entitlements: %v", domain.ErrTransport, err)
	}
	var out entitlementsResponse
	if err := decode(resp, &out); err != nil {
		return false, fmt.Errorf("%w: entitlements: %v", domain.ErrTransport, err)
	}
	return out.LifePass, nil
}
