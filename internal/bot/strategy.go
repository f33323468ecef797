// Package bot provides the seat strategies used by the simulator and by
// bot seats in live matches. A bot only sees what its seat may see: the
// public view plus its own hand.
package bot

import (
	"fmt"
	"strings"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
)

// Kind names a play style.
type Kind string

const (
	KindBuilder  Kind = "builder"
	KindSaboteur Kind = "saboteur"
	KindBalanced Kind = "balanced"
)

// FinishBonus boosts an Attack that would knock its target out this turn.
const FinishBonus = 20

// priorities ranks card types per play style, most wanted first.
var priorities = map[Kind][]catalog.CardType{
	KindBuilder: {
		catalog.TypeControlPlane,
		catalog.TypeNode,
		catalog.TypeStorage,
		catalog.TypeNetworking,
		catalog.TypeAutomation,
		catalog.TypeWorkload,
		catalog.TypeUpgrade,
		catalog.TypeAttack,
		catalog.TypeResponse,
	},
	KindSaboteur: {
		catalog.TypeAttack,
		catalog.TypeNode,
		catalog.TypeControlPlane,
		catalog.TypeWorkload,
		catalog.TypeAutomation,
		catalog.TypeUpgrade,
		catalog.TypeStorage,
		catalog.TypeNetworking,
		catalog.TypeResponse,
	},
	KindBalanced: {
		catalog.TypeNode,
		catalog.TypeControlPlane,
		catalog.TypeWorkload,
		catalog.TypeAttack,
		catalog.TypeStorage,
		catalog.TypeNetworking,
		catalog.TypeAutomation,
		catalog.TypeUpgrade,
		catalog.TypeResponse,
	},
}

// Kinds lists the known play styles.
func Kinds() []Kind {
	return []Kind{KindBuilder, KindSaboteur, KindBalanced}
}

// ParseKind resolves a play style name; empty means balanced.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindBalanced, nil
	}
	if _, ok := priorities[k]; !ok {
		return "", fmt.Errorf("unknown bot strategy %q", s)
	}
	return k, nil
}

func typeWeights(k Kind) map[catalog.CardType]int {
	order := priorities[k]
	weights := make(map[catalog.CardType]int, len(order))
	for i, t := range order {
		weights[t] = len(order) - i
	}
	return weights
}
