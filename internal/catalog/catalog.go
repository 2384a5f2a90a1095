// Package catalog holds the card definitions and game types a server can
// instantiate. Definitions are templates: instances copy them by value.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/magefree/arena-server-go/internal/game/model"
)

var (
	// ErrCardNotFound is returned for an unknown card definition id.
	ErrCardNotFound = errors.New("card definition not found")
	// ErrGameTypeNotFound is returned for an unknown game type id.
	ErrGameTypeNotFound = errors.New("game type not found")
)

//go:embed default.yaml
var defaultYAML []byte

// GameType describes how a match is set up.
type GameType struct {
	ID string `yaml:"id"`
	// Kind selects the setup hooks: duel or tutorial.
	Kind      string         `yaml:"kind"`
	Settings  model.Settings `yaml:"settings"`
	Modifiers []string       `yaml:"modifiers,omitempty"`
	// Summoner and Deck are used for users that bring no deck of their own.
	Summoner string   `yaml:"summoner"`
	Deck     []string `yaml:"deck"`
}

type file struct {
	Cards     []model.CardDefinition `yaml:"cards"`
	GameTypes []GameType             `yaml:"gameTypes"`
}

// Catalog is a concurrency-safe set of definitions and game types.
type Catalog struct {
	mu        sync.RWMutex
	cards     map[string]model.CardDefinition
	gameTypes map[string]GameType
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		cards:     make(map[string]model.CardDefinition),
		gameTypes: make(map[string]GameType),
	}
}

// Default returns the catalog shipped with the server.
func Default() (*Catalog, error) {
	return LoadYAML(defaultYAML)
}

// Load reads a catalog file. An empty path loads the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return LoadYAML(data)
}

// LoadYAML parses and validates a catalog document.
func LoadYAML(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := New()
	for _, def := range f.Cards {
		if err := c.AddCard(def); err != nil {
			return nil, err
		}
	}
	for _, gt := range f.GameTypes {
		if err := c.AddGameType(gt); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// AddCard registers or replaces a definition.
func (c *Catalog) AddCard(def model.CardDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("card definition without id")
	}
	switch def.Type {
	case model.CardTypeCreature, model.CardTypeArtifact, model.CardTypeSummoner:
	case model.CardTypeSpell:
		if def.Spell == nil {
			return fmt.Errorf("spell %s has no effect", def.ID)
		}
	default:
		return fmt.Errorf("card %s has unknown type %q", def.ID, def.Type)
	}
	c.mu.Lock()
	c.cards[def.ID] = def
	c.mu.Unlock()
	return nil
}

// AddGameType registers or replaces a game type. Zero settings fall back to
// the duel defaults.
func (c *Catalog) AddGameType(gt GameType) error {
	if gt.ID == "" {
		return fmt.Errorf("game type without id")
	}
	if gt.Kind == "" {
		return fmt.Errorf("game type %s has no kind", gt.ID)
	}
	if gt.Settings == (model.Settings{}) {
		gt.Settings = model.DefaultSettings()
	}
	c.mu.Lock()
	c.gameTypes[gt.ID] = gt
	c.mu.Unlock()
	return nil
}

// Validate checks that every reference inside the catalog resolves.
func (c *Catalog) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, def := range c.cards {
		if def.UpgradeTo == "" {
			continue
		}
		if _, ok := c.cards[def.UpgradeTo]; !ok {
			return fmt.Errorf("card %s upgrades to unknown %s", id, def.UpgradeTo)
		}
	}
	for id, gt := range c.gameTypes {
		summoner, ok := c.cards[gt.Summoner]
		if !ok || summoner.Type != model.CardTypeSummoner {
			return fmt.Errorf("game type %s: %q is not a summoner", id, gt.Summoner)
		}
		for _, cardID := range gt.Deck {
			if _, ok := c.cards[cardID]; !ok {
				return fmt.Errorf("game type %s: %w: %s", id, ErrCardNotFound, cardID)
			}
		}
	}
	return nil
}

// CardDefinition returns a copy of the definition.
func (c *Catalog) CardDefinition(id string) (model.CardDefinition, error) {
	c.mu.RLock()
	def, ok := c.cards[id]
	c.mu.RUnlock()
	if !ok {
		return model.CardDefinition{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	def.Stats = def.Stats.Clone()
	if def.Spell != nil {
		spell := *def.Spell
		def.Spell = &spell
	}
	return def, nil
}

// GameType returns a copy of the game type.
func (c *Catalog) GameType(id string) (GameType, error) {
	c.mu.RLock()
	gt, ok := c.gameTypes[id]
	c.mu.RUnlock()
	if !ok {
		return GameType{}, fmt.Errorf("%w: %s", ErrGameTypeNotFound, id)
	}
	gt.Modifiers = append([]string(nil), gt.Modifiers...)
	gt.Deck = append([]string(nil), gt.Deck...)
	return gt, nil
}

// CardIDs lists the definition ids in sorted order.
func (c *Catalog) CardIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.cards))
	for id := range c.cards {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GameTypeIDs lists the game type ids in sorted order.
func (c *Catalog) GameTypeIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.gameTypes))
	for id := range c.gameTypes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
