package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
	"github.com/kubeclash/clash-server-go/internal/game/effects"
	"github.com/kubeclash/clash-server-go/internal/game/rules"
	"github.com/kubeclash/clash-server-go/internal/random"
)

// Rule constants.
const (
	StartingResources = 5
	BaseResilience    = 6
	ResiliencePerNode = 2
	HandRefillSize    = 5
	RefreshGain       = 2
	HandLimit         = 7
	CommonsRowSize    = 3

	thresholdSmall = 15
	thresholdLarge = 12
)

// WinThreshold returns the SLO needed to win: 15 with exactly two players or
// against the Chaos Monkey, 12 otherwise.
func WinThreshold(mode Mode, players int) int {
	if mode.Automated() || players == 2 {
		return thresholdSmall
	}
	return thresholdLarge
}

// Participant is a seat supplied by the room collaborator at match start.
type Participant struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
}

// Options configures a new match.
type Options struct {
	Mode Mode
	// Seed fixes the shuffle. Zero draws a fresh random seed.
	Seed    uint64
	Catalog *catalog.Catalog
	Logger  *zap.Logger
}

// Match is the authoritative state of one game. It is not safe for
// concurrent use; the match actor is its only writer.
type Match struct {
	id     string
	mode   Mode
	status Status
	seed   uint64

	players []*PlayerBoard
	byID    map[string]*PlayerBoard

	turn    *rules.TurnManager
	windows *rules.WindowManager
	deck    *Deck
	commons []*CardInstance
	retired []*CardInstance

	inFlight     *CardInstance
	chaosPending bool
	winner       string
	threshold    int
	totalCards   int

	catalog   *catalog.Catalog
	instances map[string]*CardInstance
	interp    *effects.Interpreter
	logger    *zap.Logger
	events    *rules.EventBus

	// per-action scratch
	pending []rules.Event
	touched map[string]bool
	opened  *rules.InterruptWindow
	closed  string
	err     error
}

// NewMatch builds the deck from the catalog, shuffles it, deals opening
// hands and fills the Commons Row. The first seat's turn is started.
func NewMatch(id string, participants []Participant, opts Options) (*Match, Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeCompetitive
	}
	if err := validateSeats(opts.Mode, participants); err != nil {
		return nil, Result{}, err
	}
	if opts.Catalog == nil {
		cat, err := catalog.Default()
		if err != nil {
			return nil, Result{}, fmt.Errorf("load default catalog: %w", err)
		}
		opts.Catalog = cat
	}
	if need := HandRefillSize*len(participants) + CommonsRowSize; opts.Catalog.Size() < need {
		return nil, Result{}, reject(CodeInvalidSetup, "catalog holds %d cards, %d needed to deal", opts.Catalog.Size(), need)
	}
	if opts.Seed == 0 {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, Result{}, err
		}
		opts.Seed = seed
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if id == "" {
		id = uuid.NewString()
	}

	order := make([]string, 0, len(participants))
	for _, p := range participants {
		order = append(order, p.PlayerID)
	}

	m := &Match{
		id:        id,
		mode:      opts.Mode,
		status:    StatusActive,
		seed:      opts.Seed,
		byID:      make(map[string]*PlayerBoard, len(participants)),
		turn:      rules.NewTurnManager(order),
		windows:   rules.NewWindowManager(id),
		threshold: WinThreshold(opts.Mode, len(participants)),
		catalog:   opts.Catalog,
		instances: make(map[string]*CardInstance, opts.Catalog.Size()),
		interp:    effects.NewInterpreter(opts.Logger),
		logger:    opts.Logger.With(zap.String("match_id", id)),
		events:    rules.NewEventBus(),
	}
	for seat, p := range participants {
		b := newPlayerBoard(p, seat)
		m.players = append(m.players, b)
		m.byID[b.PlayerID] = b
	}

	m.deck = newDeck(m.buildInstances(), random.New(opts.Seed))
	m.totalCards = len(m.instances)

	m.begin()
	for _, b := range m.players {
		for i := 0; i < HandRefillSize; i++ {
			m.drawInto(b)
		}
	}
	m.refillCommons()

	started := rules.NewEvent(rules.EventMatchStarted, "", "", "")
	started.Data = string(m.mode)
	started.Metadata = map[string]string{
		"catalog_version": m.catalog.Version(),
		"threshold":       fmt.Sprint(m.threshold),
	}
	m.emit(started)
	m.startTurn()

	if m.err != nil {
		return nil, Result{}, m.err
	}
	if err := m.checkInvariants(); err != nil {
		return nil, Result{}, err
	}
	m.logger.Info("match created",
		zap.String("mode", string(m.mode)),
		zap.Int("players", len(m.players)),
		zap.Uint64("seed", m.seed))
	return m, m.commit(), nil
}

func validateSeats(mode Mode, participants []Participant) error {
	lo, hi := 2, 4
	switch mode {
	case ModeCompetitive, ModeCoop:
	case ModeSolo:
		lo, hi = 1, 1
	default:
		return reject(CodeInvalidSetup, "unknown mode %q", mode)
	}
	if n := len(participants); n < lo || n > hi {
		return reject(CodeInvalidSetup, "%s needs %d-%d players, got %d", mode, lo, hi, n)
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		id := strings.TrimSpace(p.PlayerID)
		switch {
		case id == "":
			return reject(CodeInvalidSetup, "player id is empty")
		case id != p.PlayerID:
			return reject(CodeInvalidSetup, "player id %q has surrounding whitespace", p.PlayerID)
		case id == ChaosActorID || id == SystemActorID:
			return reject(CodeInvalidSetup, "player id %q is reserved", id)
		case seen[id]:
			return reject(CodeInvalidSetup, "duplicate player id %q", id)
		}
		seen[id] = true
	}
	return nil
}

func (m *Match) buildInstances() []*CardInstance {
	var all []*CardInstance
	for _, card := range m.catalog.Cards() {
		for n := 1; n <= card.Quantity; n++ {
			ci := &CardInstance{ID: fmt.Sprintf("%s#%d", card.ID, n), Card: card}
			m.instances[ci.ID] = ci
			all = append(all, ci)
		}
	}
	return all
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Mode returns the match mode.
func (m *Match) Mode() Mode { return m.mode }

// Status returns the lifecycle status.
func (m *Match) Status() Status { return m.status }

// Seed returns the shuffle seed.
func (m *Match) Seed() uint64 { return m.seed }

// Winner returns the winning player id, ChaosActorID, or "".
func (m *Match) Winner() string { return m.winner }

// Threshold returns the SLO win threshold for this match.
func (m *Match) Threshold() int { return m.threshold }

// Round returns the current round (1-based).
func (m *Match) Round() int { return m.turn.Round() }

// Phase returns the active player's phase.
func (m *Match) Phase() rules.Phase { return m.turn.CurrentPhase() }

// ActivePlayer returns the player whose turn it is.
func (m *Match) ActivePlayer() string { return m.turn.ActivePlayer() }

// ChaosPending reports whether the round-boundary reveal is awaited.
func (m *Match) ChaosPending() bool { return m.chaosPending }

// Window returns the open interrupt window or nil.
func (m *Match) Window() *rules.InterruptWindow { return m.windows.Active() }

// Events returns the bus every committed event is published on.
func (m *Match) Events() *rules.EventBus { return m.events }

// TotalCards returns the number of card instances in the match.
func (m *Match) TotalCards() int { return m.totalCards }

// Deck exposes pile sizes.
func (m *Match) Deck() *Deck { return m.deck }

// Commons returns the Commons Row in slot order.
func (m *Match) Commons() []*CardInstance {
	return append([]*CardInstance(nil), m.commons...)
}

// Players returns the boards in seat order.
func (m *Match) Players() []*PlayerBoard {
	return append([]*PlayerBoard(nil), m.players...)
}

// Player returns the board of playerID or nil.
func (m *Match) Player(playerID string) *PlayerBoard {
	return m.byID[playerID]
}

// Gate reports which transition table governs the next action.
func (m *Match) Gate() rules.Gate {
	switch {
	case m.chaosPending:
		return rules.GateChaosReveal
	case m.windows.IsOpen():
		return rules.GateInterrupt
	default:
		return rules.GatePhase
	}
}

// AllowedActions lists what the match currently accepts from anyone.
func (m *Match) AllowedActions() []rules.ActionType {
	if m.status.Terminal() {
		return nil
	}
	return rules.AllowedActions(m.turn.CurrentPhase(), m.Gate())
}

// Instance resolves a card instance id.
func (m *Match) Instance(id string) (*CardInstance, bool) {
	ci, ok := m.instances[id]
	return ci, ok
}
