package ports

import "github.com/alejandrodnm/tacbot/internal/domain"

// ClientSource supplies the client preferences for the current game.
type ClientSource interface {
	// Clients returns the clients in registration order.
	Clients() []domain.Client
}
