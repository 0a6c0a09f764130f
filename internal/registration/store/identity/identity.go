// Package identity enforces "one registration per verified identity". Reserve
// is the single atomic check-and-set the whole engine's duplicate-prevention
// guarantee rests on: concurrent callers presenting the same identity hash get
// exactly one reservation.
package identity

import (
	"github.com/google/uuid"

	"reliefcore/pkg/domain"
)

// Reservation is the token handed to the winner of Reserve. Commit and
// Release require it so a workflow can only finalize or roll back its own
// reservation, never another caller's.
type Reservation struct {
	IdentityHash domain.IdentityHash
	Token        uuid.UUID
}

func newReservation(hash domain.IdentityHash) Reservation {
	return Reservation{IdentityHash: hash, Token: uuid.New()}
}
