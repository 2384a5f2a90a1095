package counters

// Counter names used by the rules. Card counters live in card metadata and
// are transient; user counters feed achievements and loot.
const (
	// GrowBonus is the strength bonus accumulated by cards with the grow capacity.
	GrowBonus = "growBonus"
	// TurnsOnBoard counts owner turns a card has spent on the board.
	TurnsOnBoard = "turnsOnBoard"
	// AuraBonus is the strength granted by a neighbouring aura.
	AuraBonus = "auraBonus"

	// Destroyed counts opposing cards destroyed by a user.
	Destroyed = "destroyed"
	// Confronts counts confrontations a user initiated.
	Confronts = "confronts"
	// SpellsCast counts spells cast by a user.
	SpellsCast = "spellsCast"
)
