package bot

import (
	"sort"

	"github.com/kubeclash/clash-server-go/internal/game"
	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/effects"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
)

// Bot plays one seat.
type Bot struct {
	playerID string
	kind     Kind
	catalog  *catalog.Catalog
	weights  map[catalog.CardType]int
}

// New creates a bot for playerID. Card details are looked up in cat, which
// must be the catalog the match was built from.
func New(playerID string, kind Kind, cat *catalog.Catalog) *Bot {
	if _, ok := priorities[kind]; !ok {
		kind = KindBalanced
	}
	return &Bot{
		playerID: playerID,
		kind:     kind,
		catalog:  cat,
		weights:  typeWeights(kind),
	}
}

// ActorID implements game.Strategy.
func (b *Bot) ActorID() string {
	return b.playerID
}

// Kind returns the play style.
func (b *Bot) Kind() Kind {
	return b.kind
}

// Next implements game.Strategy.
func (b *Bot) Next(view game.PlayerView) (game.Action, bool) {
	if view.Status.Terminal() {
		return game.Action{}, false
	}
	me := findBoard(view.Players, b.playerID)
	if me == nil || me.Eliminated {
		return game.Action{}, false
	}

	switch view.Phase.Gate {
	case rules.GateInterrupt.String():
		if view.Window == nil || view.Window.TargetID != b.playerID {
			return game.Action{}, false
		}
		if card, ok := b.pickResponse(view, me); ok {
			return b.action(view, rules.ActionPlayResponse, game.Payload{CardID: card.InstanceID}), true
		}
		return b.action(view, rules.ActionPass, game.Payload{}), true
	case rules.GatePhase.String():
		if view.Phase.ActivePlayer != b.playerID {
			return game.Action{}, false
		}
	default:
		return game.Action{}, false
	}

	switch view.Phase.Phase {
	case rules.PhaseRefresh:
		if len(me.Incidents) > 0 && allowed(view, rules.ActionRemoveIncident) {
			return b.action(view, rules.ActionRemoveIncident, game.Payload{IncidentID: me.Incidents[0].ID}), true
		}
	case rules.PhasePlan:
		if card, ok := b.pickSurplus(view, me); ok {
			return b.action(view, rules.ActionDiscardForResource, game.Payload{CardID: card.InstanceID}), true
		}
	case rules.PhaseDeploy:
		if card, ok := b.pickDeploy(view, me); ok {
			return b.action(view, rules.ActionPlayCard, game.Payload{CardID: card.InstanceID}), true
		}
		if card, ok := b.pickBuy(view, me); ok {
			return b.action(view, rules.ActionBuyCard, game.Payload{CardID: card.InstanceID}), true
		}
	case rules.PhaseSabotage:
		if card, target, ok := b.pickAttack(view, me); ok {
			return b.action(view, rules.ActionPlayAttack, game.Payload{CardID: card.InstanceID, TargetID: target}), true
		}
	case rules.PhaseStabilize:
		if incidentID, ok := b.pickRepair(me); ok {
			return b.action(view, rules.ActionPayRepair, game.Payload{IncidentID: incidentID}), true
		}
	}
	if !allowed(view, rules.ActionPass) {
		return game.Action{}, false
	}
	return b.action(view, rules.ActionPass, game.Payload{}), true
}

func (b *Bot) action(view game.PlayerView, typ rules.ActionType, payload game.Payload) game.Action {
	return game.Action{
		MatchID: view.MatchID,
		ActorID: b.playerID,
		Type:    typ,
		Payload: payload,
	}
}

// score follows the simulator's heuristic: type weight dominates, cheaper
// and higher-SLO cards break ties.
func (b *Bot) score(card *catalog.Card, finishes bool) int {
	weight := b.weights[card.Type]
	if finishes {
		weight += FinishBonus
	}
	return weight*100 - card.Cost + card.SLO*2
}

type scored struct {
	view  game.CardView
	card  *catalog.Card
	score int
}

func (b *Bot) rank(cards []game.CardView) []scored {
	out := make([]scored, 0, len(cards))
	for _, cv := range cards {
		card, ok := b.catalog.Get(cv.CardID)
		if !ok {
			continue
		}
		out = append(out, scored{view: cv, card: card, score: b.score(card, false)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].card.Cost < out[j].card.Cost
	})
	return out
}

func (b *Bot) pickDeploy(view game.PlayerView, me *game.BoardView) (game.CardView, bool) {
	if !allowed(view, rules.ActionPlayCard) {
		return game.CardView{}, false
	}
	counts := boardCounts(me)
	for _, s := range b.rank(view.Hand) {
		if !s.card.Type.IsPersistent() || s.card.Cost > me.Resources {
			continue
		}
		if game.CheckPrerequisites(s.card, counts) != nil {
			continue
		}
		return s.view, true
	}
	return game.CardView{}, false
}

func (b *Bot) pickBuy(view game.PlayerView, me *game.BoardView) (game.CardView, bool) {
	if !allowed(view, rules.ActionBuyCard) || len(view.Hand) >= game.HandLimit {
		return game.CardView{}, false
	}
	for _, s := range b.rank(view.Commons) {
		if s.card.Type == catalog.TypeResponse || s.card.Cost > me.Resources {
			continue
		}
		return s.view, true
	}
	return game.CardView{}, false
}

// pickSurplus trades the least wanted card for a resource once the hand
// is larger than a refill would leave it.
func (b *Bot) pickSurplus(view game.PlayerView, me *game.BoardView) (game.CardView, bool) {
	if !allowed(view, rules.ActionDiscardForResource) || len(view.Hand) <= game.HandRefillSize {
		return game.CardView{}, false
	}
	ranked := b.rank(view.Hand)
	if len(ranked) == 0 {
		return game.CardView{}, false
	}
	return ranked[len(ranked)-1].view, true
}

func (b *Bot) pickAttack(view game.PlayerView, me *game.BoardView) (game.CardView, string, bool) {
	if !allowed(view, rules.ActionPlayAttack) {
		return game.CardView{}, "", false
	}
	var (
		best      game.CardView
		bestScore int
		target    string
		found     bool
	)
	for _, cv := range view.Hand {
		card, ok := b.catalog.Get(cv.CardID)
		if !ok || card.Type != catalog.TypeAttack || card.Cost > me.Resources {
			continue
		}
		victim, finishes := b.chooseTarget(view, card)
		if victim == "" {
			continue
		}
		if b.kind == KindBuilder && !finishes {
			continue
		}
		s := b.score(card, finishes)
		if !found || s > bestScore {
			best, bestScore, target, found = cv, s, victim, true
		}
	}
	return best, target, found
}

// chooseTarget prefers an opponent the attack would knock out, then the
// highest SLO, then the lowest resilience, then seat order.
func (b *Bot) chooseTarget(view game.PlayerView, card *catalog.Card) (string, bool) {
	var opponents []game.BoardView
	for _, p := range view.Players {
		if p.PlayerID != b.playerID && !p.Eliminated {
			opponents = append(opponents, p)
		}
	}
	if len(opponents) == 0 {
		return "", false
	}
	sort.SliceStable(opponents, func(i, j int) bool {
		fi, fj := finishes(card, opponents[i]), finishes(card, opponents[j])
		if fi != fj {
			return fi
		}
		if opponents[i].SLO != opponents[j].SLO {
			return opponents[i].SLO > opponents[j].SLO
		}
		if opponents[i].Resilience != opponents[j].Resilience {
			return opponents[i].Resilience < opponents[j].Resilience
		}
		return opponents[i].Seat < opponents[j].Seat
	})
	return opponents[0].PlayerID, finishes(card, opponents[0])
}

// finishes estimates whether target would fall below zero resilience at
// its next Incidents phase once this attack lands.
func finishes(card *catalog.Card, target game.BoardView) bool {
	damage := 0
	for _, inc := range target.Incidents {
		damage += inc.Damage
	}
	for _, in := range card.PlayInstructions() {
		if in.Op == effects.OpAddIncident && in.Scope == effects.ScopeTarget {
			damage += in.Amount * card.Damage()
		}
	}
	return damage > 0 && target.Resilience-damage < 0
}

func (b *Bot) pickResponse(view game.PlayerView, me *game.BoardView) (game.CardView, bool) {
	if !allowed(view, rules.ActionPlayResponse) {
		return game.CardView{}, false
	}
	var (
		best    game.CardView
		cancels bool
		cost    int
		found   bool
	)
	for _, cv := range view.Hand {
		card, ok := b.catalog.Get(cv.CardID)
		if !ok || card.Type != catalog.TypeResponse || card.Cost > me.Resources {
			continue
		}
		c := card.Cancels()
		better := !found ||
			(c && !cancels) ||
			(c == cancels && card.Cost < cost)
		if better {
			best, cancels, cost, found = cv, c, card.Cost, true
		}
	}
	return best, found
}

// pickRepair clears the cheapest affordable incident.
func (b *Bot) pickRepair(me *game.BoardView) (string, bool) {
	bestID, bestCost := "", 0
	for _, inc := range me.Incidents {
		cost := b.repairCost(me, inc.TargetID)
		if cost > me.Resources {
			continue
		}
		if bestID == "" || cost < bestCost {
			bestID, bestCost = inc.ID, cost
		}
	}
	return bestID, bestID != ""
}

func (b *Bot) repairCost(me *game.BoardView, cardID string) int {
	if cardID == "" {
		return 1
	}
	for _, zone := range [][]game.CardView{me.Infrastructure, me.Workloads, me.Extensions} {
		for _, cv := range zone {
			if cv.InstanceID != cardID {
				continue
			}
			if card, ok := b.catalog.Get(cv.CardID); ok {
				return card.Repair()
			}
		}
	}
	return 1
}

func findBoard(players []game.BoardView, playerID string) *game.BoardView {
	for i := range players {
		if players[i].PlayerID == playerID {
			return &players[i]
		}
	}
	return nil
}

func boardCounts(me *game.BoardView) map[catalog.CardType]int {
	counts := make(map[catalog.CardType]int)
	for _, zone := range [][]game.CardView{me.Infrastructure, me.Workloads, me.Extensions} {
		for _, cv := range zone {
			counts[cv.Type]++
		}
	}
	return counts
}

func allowed(view game.PlayerView, typ rules.ActionType) bool {
	for _, a := range view.AllowedActions {
		if a == typ {
			return true
		}
	}
	return false
}
