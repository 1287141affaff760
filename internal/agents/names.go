package agents

import (
	"github.com/talgya/blockrow/internal/entropy"
)

// Street-name fragments for NPC registration. Combined as
// "<epithet> <given>" or "<given> the <epithet>".
var (
	nameEpithets = []string{
		"Slick", "Two-Step", "Quiet", "Lucky", "Razor", "Half-Pint",
		"Smokey", "Dice", "Velvet", "Crooked", "Midnight", "Penny",
	}
	nameGivens = []string{
		"Vic", "Marla", "Dutch", "Sonny", "Ines", "Cash", "Roxie",
		"Lou", "Frankie", "Della", "Moe", "Teddy", "Nadia", "Gus",
	}
)

// StreetName generates a deterministic nickname from the stream. Used for
// NPC registration so a replayed world produces the same cast.
func StreetName(stream *entropy.Stream) string {
	given := entropy.Pick(stream, nameGivens)
	epithet := entropy.Pick(stream, nameEpithets)
	if stream.Chance(0.3) {
		return given + " the " + epithet
	}
	return epithet + " " + given
}
