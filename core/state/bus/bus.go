package bus

// Bus ties the state stores together. Each store registers its narrow
// interface on construction; cross-store calls go through the bus so that
// stores never import each other.
type Bus struct {
	transcoders Transcoders
	ranking     Ranking
	checker     Checker
	events      Events
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SetTranscoders(transcoders Transcoders) {
	b.transcoders = transcoders
}

func (b *Bus) Transcoders() Transcoders {
	return b.transcoders
}

func (b *Bus) SetRanking(ranking Ranking) {
	b.ranking = ranking
}

func (b *Bus) Ranking() Ranking {
	return b.ranking
}

func (b *Bus) SetChecker(checker Checker) {
	b.checker = checker
}

func (b *Bus) Checker() Checker {
	return b.checker
}

func (b *Bus) SetEvents(events Events) {
	b.events = events
}

func (b *Bus) Events() Events {
	return b.events
}
