package bus

import (
	"github.com/vidra-network/vidra-go-node/core/events"
)

type Events interface {
	AddEvent(event events.Event)
}
