package game

import "github.com/kubeclash/clash-server-go/internal/game/rules"

// refillCommons tops the Commons Row up to three cards. The row stays
// short when the deck and discard pile run dry.
func (m *Match) refillCommons() {
	added := 0
	for len(m.commons) < CommonsRowSize {
		card := m.drawTop()
		if card == nil {
			evt := rules.NewEventWithAmount(rules.EventResourceExhausted, "", "", "", len(m.commons))
			evt.Data = "commons_short"
			m.emit(evt)
			break
		}
		m.commons = append(m.commons, card)
		added++
	}
	if added > 0 {
		m.emit(rules.NewEventWithAmount(rules.EventCommonsRefilled, "", "", "", added))
	}
}

func (m *Match) commonsIndex(id string) int {
	for i, ci := range m.commons {
		if ci.ID == id {
			return i
		}
	}
	return -1
}

// buyCard moves a Commons Row card into the buyer's hand. The gap stays
// open until End.
func (m *Match) buyCard(a Action) error {
	b := m.active()
	idx := m.commonsIndex(a.Payload.CardID)
	if idx < 0 {
		return reject(CodeCardNotFound, "card %q not in the Commons Row", a.Payload.CardID)
	}
	ci := m.commons[idx]
	if b.Resources < ci.Card.Cost {
		return reject(CodeInsufficientResources, "%s costs %d, you have %d", ci.Card.Name, ci.Card.Cost, b.Resources)
	}

	m.commons = append(m.commons[:idx], m.commons[idx+1:]...)
	m.spend(b, ci.Card.Cost, ci.ID)
	b.Hand = append(b.Hand, ci)
	evt := rules.NewEventWithAmount(rules.EventCardBought, b.PlayerID, "", ci.ID, ci.Card.Cost)
	evt.Data = ci.Card.ID
	m.emit(evt)
	return nil
}
