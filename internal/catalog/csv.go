package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// csvColumns is the header ImportCSV expects, in order.
var csvColumns = []string{
	"id", "name", "type", "life",
	"top", "right", "bottom", "left",
	"capacities", "upgrade_to", "upgrade_after",
	"spell_kind", "spell_amount", "text",
}

// ImportCSV reads card definitions from a CSV export. Sides are written as
// "strength/defense" and capacities are separated by "|".
func ImportCSV(r io.Reader) ([]model.CardDefinition, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(csvColumns) {
		return nil, fmt.Errorf("header has %d columns, want %d", len(header), len(csvColumns))
	}
	for i, name := range csvColumns {
		if strings.ToLower(strings.TrimSpace(header[i])) != name {
			return nil, fmt.Errorf("column %d is %q, want %q", i+1, header[i], name)
		}
	}

	var defs []model.CardDefinition
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		def, err := parseCardRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseCardRecord(record []string) (model.CardDefinition, error) {
	def := model.CardDefinition{
		ID:        record[0],
		Name:      record[1],
		Type:      model.CardType(record[2]),
		UpgradeTo: record[9],
		Text:      record[13],
	}

	var err error
	if def.Stats.Life, err = atoiOrZero(record[3]); err != nil {
		return def, fmt.Errorf("life: %w", err)
	}
	sides := []*model.SideStats{&def.Stats.Top, &def.Stats.Right, &def.Stats.Bottom, &def.Stats.Left}
	for i, side := range sides {
		if *side, err = parseSide(record[4+i]); err != nil {
			return def, fmt.Errorf("%s: %w", csvColumns[4+i], err)
		}
	}
	if record[8] != "" {
		def.Stats.Capacities = strings.Split(record[8], "|")
	}
	if def.UpgradeAfter, err = atoiOrZero(record[10]); err != nil {
		return def, fmt.Errorf("upgrade_after: %w", err)
	}
	if record[11] != "" {
		amount, err := atoiOrZero(record[12])
		if err != nil {
			return def, fmt.Errorf("spell_amount: %w", err)
		}
		def.Spell = &model.SpellEffect{Kind: model.SpellKind(record[11]), Amount: amount}
	}
	return def, nil
}

func parseSide(s string) (model.SideStats, error) {
	if s == "" {
		return model.SideStats{}, nil
	}
	strength, defense, ok := strings.Cut(s, "/")
	if !ok {
		return model.SideStats{}, fmt.Errorf("side %q is not strength/defense", s)
	}
	st, err := strconv.Atoi(strength)
	if err != nil {
		return model.SideStats{}, err
	}
	df, err := strconv.Atoi(defense)
	if err != nil {
		return model.SideStats{}, err
	}
	return model.SideStats{Strength: st, Defense: df}, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Encode writes the catalog in the format LoadYAML reads, sorted by id.
func (c *Catalog) Encode() ([]byte, error) {
	c.mu.RLock()
	var f file
	for _, def := range c.cards {
		f.Cards = append(f.Cards, def)
	}
	for _, gt := range c.gameTypes {
		f.GameTypes = append(f.GameTypes, gt)
	}
	c.mu.RUnlock()

	sort.Slice(f.Cards, func(i, j int) bool { return f.Cards[i].ID < f.Cards[j].ID })
	sort.Slice(f.GameTypes, func(i, j int) bool { return f.GameTypes[i].ID < f.GameTypes[j].ID })
	return yaml.Marshal(f)
}
