package datasource

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned when no actor is available for a mutation.
var ErrNoCredentials = errors.New("no credentials")

// Actor is the user on whose behalf a change is made. It ends up in the
// record's audit and verification fields.
type Actor struct {
	ID   string
	Name string
	Role string
}

// Credentials supplies the acting user. It is handed to a screen when the
// screen is built so nothing downstream reads session state on its own.
type Credentials interface {
	Actor(ctx context.Context) (Actor, error)
}

// StaticCredentials always returns the same actor.
type StaticCredentials Actor

// Actor implements Credentials.
func (c StaticCredentials) Actor(context.Context) (Actor, error) {
	if c.ID == "" {
		return Actor{}, ErrNoCredentials
	}
	return Actor(c), nil
}
