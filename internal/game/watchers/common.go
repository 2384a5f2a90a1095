package watchers

import (
	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// AchievementSlayer is awarded for destroying enough opposing cards.
const AchievementSlayer = "slayer"

// DestroyedWatcher credits the owner of the source of a destruction when it
// destroyed an opposing card.
type DestroyedWatcher struct {
	BaseWatcher
}

// NewDestroyedWatcher creates a destroyed cards watcher.
func NewDestroyedWatcher() *DestroyedWatcher {
	return &DestroyedWatcher{BaseWatcher: NewBaseWatcher(counters.Destroyed, hooks.EventCardDestroyed)}
}

// Watch implements the Watcher interface.
func (w *DestroyedWatcher) Watch(inst *model.GameInstance, p hooks.Params) (string, bool) {
	if p.Card == nil || p.Source == nil || p.Source.Owner == p.Card.Owner {
		return "", false
	}
	return p.Source.Owner, true
}

// SpellsCastWatcher tracks spells cast by users.
type SpellsCastWatcher struct {
	BaseWatcher
}

// NewSpellsCastWatcher creates a new spells cast watcher.
func NewSpellsCastWatcher() *SpellsCastWatcher {
	return &SpellsCastWatcher{BaseWatcher: NewBaseWatcher(counters.SpellsCast, hooks.EventSpellCast)}
}

// Watch implements the Watcher interface.
func (w *SpellsCastWatcher) Watch(inst *model.GameInstance, p hooks.Params) (string, bool) {
	return p.User, p.User != ""
}

// ConfrontsWatcher tracks confrontations initiated by users.
type ConfrontsWatcher struct {
	BaseWatcher
}

// NewConfrontsWatcher creates a confrontations watcher.
func NewConfrontsWatcher() *ConfrontsWatcher {
	return &ConfrontsWatcher{BaseWatcher: NewBaseWatcher(counters.Confronts, hooks.EventCardConfronted)}
}

// Watch implements the Watcher interface.
func (w *ConfrontsWatcher) Watch(inst *model.GameInstance, p hooks.Params) (string, bool) {
	return p.User, p.User != ""
}

// DefaultAchievements returns the standard achievement table.
func DefaultAchievements(slayerThreshold int) []Achievement {
	return []Achievement{
		{Name: AchievementSlayer, Counter: counters.Destroyed, Threshold: slayerThreshold},
	}
}

// AddCommonWatchers adds every watcher defined in this file.
func (wr *Registry) AddCommonWatchers() {
	wr.AddWatcher(NewDestroyedWatcher())
	wr.AddWatcher(NewSpellsCastWatcher())
	wr.AddWatcher(NewConfrontsWatcher())
}
