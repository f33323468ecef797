package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kubeclash/clash-server-go/internal/game/effects"
)

//go:embed cards_en.json
var defaultCatalog []byte

// File is the on-disk catalog document.
type File struct {
	Version string  `json:"version" jsonschema:"required,description=Catalog revision"`
	Cards   []Entry `json:"cards" jsonschema:"required,minItems=1"`
}

// Entry is one authored card definition.
type Entry struct {
	ID             string                `json:"id" jsonschema:"required,pattern=^[a-z0-9_]+$"`
	Name           string                `json:"name" jsonschema:"required"`
	Type           string                `json:"type" jsonschema:"required,enum=Node,enum=Control Plane,enum=ControlPlane,enum=Storage,enum=Networking,enum=Workload,enum=Automation,enum=Upgrade,enum=Attack,enum=Response"`
	Cost           int                   `json:"cost" jsonschema:"minimum=0"`
	SLO            int                   `json:"slo,omitempty" jsonschema:"minimum=0,description=Workload cards only"`
	Quantity       int                   `json:"quantity" jsonschema:"minimum=1"`
	Prerequisite   string                `json:"prerequisite,omitempty" jsonschema:"description=For example 'Requires 2 Nodes'"`
	Effect         string                `json:"effect,omitempty" jsonschema:"description=Authored text compiled into instructions at load"`
	Repair         int                   `json:"repair,omitempty" jsonschema:"minimum=0,description=Custom price to clear an incident on this card"`
	IncidentDamage int                   `json:"incident_damage,omitempty" jsonschema:"minimum=0"`
	Instructions   []effects.Instruction `json:"instructions,omitempty" jsonschema:"description=Pre-compiled instructions used instead of effect text"`
}

// Catalog is the immutable, versioned card table.
type Catalog struct {
	version string
	cards   []*Card
	byID    map[string]*Card
}

// Version returns the catalog revision string.
func (c *Catalog) Version() string {
	return c.version
}

// Get looks up a card definition by id.
func (c *Catalog) Get(id string) (*Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// Cards returns the definitions in authored order.
func (c *Catalog) Cards() []*Card {
	return append([]*Card(nil), c.cards...)
}

// Size is the number of physical cards a match deck is built from.
func (c *Catalog) Size() int {
	total := 0
	for _, card := range c.cards {
		total += card.Quantity
	}
	return total
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and compiles a catalog file. An empty path selects the
// bundled catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document and compiles every entry. All authoring
// errors are reported together.
func Parse(data []byte) (*Catalog, error) {
	var file File
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return Compile(file)
}

// Compile validates a decoded document and builds the catalog.
func Compile(file File) (*Catalog, error) {
	if len(file.Cards) == 0 {
		return nil, errors.New("catalog has no cards")
	}
	cat := &Catalog{
		version: file.Version,
		byID:    make(map[string]*Card, len(file.Cards)),
	}
	var errs []error
	for i, entry := range file.Cards {
		card, err := compileEntry(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d (%s): %w", i, entry.ID, err))
			continue
		}
		if _, dup := cat.byID[card.ID]; dup {
			errs = append(errs, fmt.Errorf("card %d: duplicate id %q", i, card.ID))
			continue
		}
		cat.byID[card.ID] = card
		cat.cards = append(cat.cards, card)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cat, nil
}

func compileEntry(e Entry) (*Card, error) {
	if e.ID == "" {
		return nil, errors.New("missing id")
	}
	if e.Name == "" {
		return nil, errors.New("missing name")
	}
	t, err := ParseCardType(e.Type)
	if err != nil {
		return nil, err
	}
	if e.Cost < 0 {
		return nil, fmt.Errorf("negative cost %d", e.Cost)
	}
	if e.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", e.Quantity)
	}
	if e.Repair < 0 || e.IncidentDamage < 0 {
		return nil, errors.New("repair and incident_damage must not be negative")
	}
	switch {
	case t == TypeWorkload && e.SLO <= 0:
		return nil, fmt.Errorf("workload needs a positive slo, got %d", e.SLO)
	case t != TypeWorkload && e.SLO != 0:
		return nil, fmt.Errorf("only workloads carry slo, got %d on %s", e.SLO, t)
	}
	prereq, err := ParsePrerequisite(e.Prerequisite)
	if err != nil {
		return nil, err
	}

	var instructions []effects.Instruction
	if len(e.Instructions) > 0 {
		for _, instr := range e.Instructions {
			instructions = append(instructions, instr.Normalize())
		}
	} else {
		instructions, err = CompileText(e.Effect)
		if err != nil {
			return nil, err
		}
	}
	for _, instr := range instructions {
		if err := instr.Validate(); err != nil {
			return nil, err
		}
	}
	if err := checkShape(t, instructions); err != nil {
		return nil, err
	}

	return &Card{
		ID:             e.ID,
		Name:           e.Name,
		Type:           t,
		Cost:           e.Cost,
		SLO:            e.SLO,
		Quantity:       e.Quantity,
		Prerequisite:   prereq,
		RepairCost:     e.Repair,
		IncidentDamage: e.IncidentDamage,
		Text:           e.Effect,
		Instructions:   instructions,
	}, nil
}

// checkShape enforces which instruction shapes each card family may carry.
func checkShape(t CardType, instructions []effects.Instruction) error {
	switch t {
	case TypeAttack:
		if len(effects.Filter(instructions, effects.TriggerPlay)) == 0 {
			return errors.New("attack has no effect")
		}
		for _, i := range instructions {
			if i.Trigger != effects.TriggerPlay {
				return fmt.Errorf("attack instruction %s must fire on play", i)
			}
			if i.Op == effects.OpCancel {
				return errors.New("attack cannot cancel")
			}
		}
	case TypeResponse:
		if len(instructions) == 0 {
			return errors.New("response has no effect")
		}
		for _, i := range instructions {
			if i.Scope == effects.ScopeTarget || i.Trigger != effects.TriggerPlay {
				return fmt.Errorf("response instruction %s must affect its player on play", i)
			}
		}
	default:
		for _, i := range instructions {
			if i.Scope == effects.ScopeTarget {
				return fmt.Errorf("%s cards cannot target opponents (%s)", t, i)
			}
			if i.Op == effects.OpCancel {
				return fmt.Errorf("%s cards cannot cancel attacks", t)
			}
		}
	}
	return nil
}
