package game

// Strategy drives a seat that no human controls: a bot player or the
// Chaos Monkey. Next inspects the actor's own view and returns the action
// it wants queued, or false when it has nothing to do right now.
type Strategy interface {
	ActorID() string
	Next(view PlayerView) (Action, bool)
}
