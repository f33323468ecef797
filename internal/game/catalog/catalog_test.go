package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeclash/clash-server-go/internal/game/effects"
)

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, cat.Version())
	assert.Equal(t, 60, cat.Size())

	seen := make(map[CardType]bool)
	for _, card := range cat.Cards() {
		seen[card.Type] = true
	}
	for _, typ := range Types() {
		assert.True(t, seen[typ], "default catalog should include a %s card", typ)
	}

	ddos, ok := cat.Get("ddos_burst")
	require.True(t, ok)
	assert.Equal(t, []effects.Instruction{
		effects.AddIncident(effects.ScopeTarget, 2),
		effects.StealResource(2),
	}, ddos.Instructions)

	rollback, ok := cat.Get("rollback")
	require.True(t, ok)
	assert.True(t, rollback.Cancels())

	cp, ok := cat.Get("control_plane")
	require.True(t, ok)
	assert.Equal(t, TypeControlPlane, cp.Type)
	assert.Equal(t, 2, cp.Repair())

	ha, _ := cat.Get("ha_control_plane")
	assert.Equal(t, 1, ha.Repair(), "custom repair cost overrides the control plane default")
	assert.Equal(t, Prerequisite{Type: TypeNode, Count: 2}, ha.Prerequisite)

	api, _ := cat.Get("stateless_api_service")
	assert.Empty(t, api.PlayInstructions())
	assert.Equal(t, []effects.Instruction{effects.GainResource(1).OnRefresh()}, api.RefreshInstructions())

	scc, _ := cat.Get("supply_chain_compromise")
	assert.Equal(t, 2, scc.Damage())
	node, _ := cat.Get("worker_node")
	assert.Equal(t, 1, node.Damage())
}

func TestParseRejectsAuthoringErrors(t *testing.T) {
	cases := map[string]string{
		"unmapped text":   `{"version":"t","cards":[{"id":"x","name":"X","type":"Attack","cost":1,"quantity":1,"effect":"Summon a dragon."}]}`,
		"unknown type":    `{"version":"t","cards":[{"id":"x","name":"X","type":"Land","cost":1,"quantity":1}]}`,
		"slo on node":     `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"slo":2,"quantity":1}]}`,
		"workload no slo": `{"version":"t","cards":[{"id":"x","name":"X","type":"Workload","cost":1,"quantity":1}]}`,
		"zero quantity":   `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"quantity":0}]}`,
		"duplicate":       `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"quantity":1},{"id":"x","name":"Y","type":"Node","cost":1,"quantity":1}]}`,
		"attack no text":  `{"version":"t","cards":[{"id":"x","name":"X","type":"Attack","cost":1,"quantity":1}]}`,
		"node targets":    `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"quantity":1,"effect":"Steal 1 resource from target."}]}`,
		"bad prereq":      `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"quantity":1,"prerequisite":"Requires luck"}]}`,
		"unknown field":   `{"version":"t","cards":[{"id":"x","name":"X","type":"Node","cost":1,"quantity":1,"rarity":"mythic"}]}`,
		"empty":           `{"version":"t","cards":[]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseAcceptsPrecompiledInstructions(t *testing.T) {
	doc := `{"version":"t","cards":[{"id":"x","name":"X","type":"Attack","cost":1,"quantity":2,
		"instructions":[{"op":"add_incident","amount":3},{"op":"reduce_slo","scope":"target","amount":1}]}]}`
	cat, err := Parse([]byte(doc))
	require.NoError(t, err)

	card, ok := cat.Get("x")
	require.True(t, ok)
	assert.Equal(t, []effects.Instruction{
		effects.AddIncident(effects.ScopeTarget, 3),
		effects.ReduceSLO(effects.ScopeTarget, 1),
	}, card.Instructions)
	assert.Equal(t, 2, cat.Size())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"file","cards":[{"id":"n","name":"N","type":"Node","cost":2,"quantity":4}]}`), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cat.Version())

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, def.Size())
}

func TestParseCardType(t *testing.T) {
	for input, want := range map[string]CardType{
		"Control Plane": TypeControlPlane,
		"controlplane":  TypeControlPlane,
		" node ":        TypeNode,
		"RESPONSE":      TypeResponse,
	} {
		got, err := ParseCardType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}
	_, err := ParseCardType("Creature")
	assert.Error(t, err)

	assert.True(t, TypeStorage.IsInfrastructure())
	assert.False(t, TypeWorkload.IsInfrastructure())
	assert.False(t, TypeAttack.IsPersistent())
}

func TestParsePrerequisite(t *testing.T) {
	cases := map[string]Prerequisite{
		"":                       {},
		"none":                   {},
		"Requires Networking":    {Type: TypeNetworking, Count: 1},
		"requires 2 Nodes":       {Type: TypeNode, Count: 2},
		"Requires Control Plane": {Type: TypeControlPlane, Count: 1},
		"Requires two Storage.":  {Type: TypeStorage, Count: 2},
		"Requires a Node":        {Type: TypeNode, Count: 1},
	}
	for input, want := range cases {
		got, err := ParsePrerequisite(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	p := Prerequisite{Type: TypeNode, Count: 2}
	assert.True(t, p.Satisfied(map[CardType]int{TypeNode: 2}))
	assert.False(t, p.Satisfied(map[CardType]int{TypeNode: 1}))
	assert.True(t, Prerequisite{}.Satisfied(nil))
	assert.Equal(t, "Requires 2 Nodes", p.String())
}

func TestSchemaDescribesEntries(t *testing.T) {
	schema := Schema()
	require.NotNil(t, schema)
	assert.Equal(t, "Cluster Clash Card Catalog", schema.Title)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), "incident_damage")
	assert.Contains(t, string(data), "remove_incident")
}
