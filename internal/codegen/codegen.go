package codegen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const maxDraws = 1000

// Generator allocates access codes and reservation identifiers. It is not
// safe for concurrent use; callers serialize access behind the engine's
// transaction boundary.
type Generator struct {
	rnd *rand.Rand
}

func New(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// AccessCode returns a 6-digit, zero-padded numeric code not present in
// active. It makes at most 1000 random draws and then falls back to a
// possibly colliding code rather than looping forever; the ledger's
// uniqueness check catches the duplicate in that case.
func (g *Generator) AccessCode(active map[string]struct{}) string {
	for i := 0; i < maxDraws; i++ {
		code := fmt.Sprintf("%06d", g.rnd.Intn(1_000_000))
		if _, taken := active[code]; !taken {
			return code
		}
	}
	return fmt.Sprintf("%06d", g.rnd.Intn(1_000_000))
}

// ReservationID returns a human-scannable unique id, "R-" plus the first
// eight hex chars of a v4 UUID. Collision probability is negligible and is
// not checked against existing ids.
func (g *Generator) ReservationID() string {
	return "R-" + strings.ToUpper(uuid.NewString()[:8])
}
