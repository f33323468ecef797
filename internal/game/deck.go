package game

import "math/rand/v2"

// Deck is the shared draw pile plus discard pile. The top of the draw pile
// is the last element.
type Deck struct {
	draw    []*CardInstance
	discard []*CardInstance
	rng     *rand.Rand
}

func newDeck(cards []*CardInstance, rng *rand.Rand) *Deck {
	d := &Deck{
		draw: append([]*CardInstance(nil), cards...),
		rng:  rng,
	}
	d.shuffle()
	return d
}

func (d *Deck) shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) {
		d.draw[i], d.draw[j] = d.draw[j], d.draw[i]
	})
}

// Draw takes the top card. An empty draw pile is rebuilt from the shuffled
// discard pile first; when both are empty the result is nil.
func (d *Deck) Draw() (card *CardInstance, reshuffled bool) {
	if len(d.draw) == 0 {
		if len(d.discard) == 0 {
			return nil, false
		}
		d.draw, d.discard = d.discard, nil
		d.shuffle()
		reshuffled = true
	}
	last := len(d.draw) - 1
	card = d.draw[last]
	d.draw = d.draw[:last]
	return card, reshuffled
}

// Discard puts cards face up on the discard pile.
func (d *Deck) Discard(cards ...*CardInstance) {
	for _, c := range cards {
		if c != nil {
			d.discard = append(d.discard, c)
		}
	}
}

// Len is the number of cards in the draw pile.
func (d *Deck) Len() int {
	return len(d.draw)
}

// DiscardLen is the number of cards in the discard pile.
func (d *Deck) DiscardLen() int {
	return len(d.discard)
}

// Exhausted reports whether both piles are empty.
func (d *Deck) Exhausted() bool {
	return len(d.draw) == 0 && len(d.discard) == 0
}

// order lists draw pile ids from the top down.
func (d *Deck) order() []string {
	ids := make([]string, 0, len(d.draw))
	for i := len(d.draw) - 1; i >= 0; i-- {
		ids = append(ids, d.draw[i].ID)
	}
	return ids
}

func (d *Deck) discardIDs() []string {
	ids := make([]string, 0, len(d.discard))
	for _, c := range d.discard {
		ids = append(ids, c.ID)
	}
	return ids
}
