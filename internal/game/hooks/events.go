package hooks

import "github.com/magefree/arena-server-go/internal/game/model"

// Event names. Card events are extended with the card type and definition id
// so rules can subscribe as broadly or narrowly as they need.
const (
	EventGameCreated      = "game:created"
	EventGameEnded        = "game:ended"
	EventTurnDrawEnded    = "turn:drawEnded"
	EventTurnEnded        = "turn:ended"
	EventTurnStarted      = "turn:started"
	EventTurnBoardEffects = "turn:boardEffects"

	EventCardLifeChanged = "card:lifeChanged"
	EventCardDamaged     = "card:lifeChanged:damaged"
	EventCardHealed      = "card:lifeChanged:healed"
	EventCardDestroyed   = "card:destroyed"
	EventCardPlaced      = "card:placed"
	EventCardMoved       = "card:moved"
	EventCardDrawn       = "card:drawn"
	EventCardDiscarded   = "card:discarded"
	EventCardEvolved     = "card:evolved"
	EventCardConfronted  = "card:confronted"

	EventSpellCast          = "spell:cast"
	EventBoardSquareExpired = "board:squareExpired"
	EventUserDeckEmpty      = "user:deckEmpty"
	EventUserAchievement    = "user:achievement"
)

// Game type kinds used in game:created:<kind>:<gameTypeId>.
const (
	KindDuel     = "duel"
	KindTutorial = "tutorial"
)

// GameCreated builds game:created:<kind>:<gameTypeId>.
func GameCreated(kind, gameTypeID string) Path {
	return ParsePath(EventGameCreated).Child(kind, gameTypeID)
}

// CardEvent builds <name>:<type>:<definitionId> for a card.
func CardEvent(name string, card *model.Card) Path {
	return ParsePath(name).Child(string(card.Type), card.DefinitionID)
}

// LifeChanged builds the damaged or healed event of a card.
func LifeChanged(card *model.Card, delta int) Path {
	if delta < 0 {
		return CardEvent(EventCardDamaged, card)
	}
	return CardEvent(EventCardHealed, card)
}

// SpellCast builds spell:cast:<definitionId>.
func SpellCast(definitionID string) Path {
	return ParsePath(EventSpellCast).Child(definitionID)
}

// Achievement builds user:achievement:<name>.
func Achievement(name string) Path {
	return ParsePath(EventUserAchievement).Child(name)
}
