package ingest

// State is a step of the tier escalation.
type State int

const (
	StateAPI State = iota
	StateRSS
	StateWeb
	StateFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAPI:
		return "api"
	case StateRSS:
		return "rss"
	case StateWeb:
		return "web"
	case StateFallback:
		return "fallback"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Next returns the state that follows s once the accumulator holds have
// articles. API and RSS stop as soon as the quota is met; after WEB only the
// floor matters.
func Next(s State, have, quota, floor int) State {
	switch s {
	case StateAPI:
		if have >= quota {
			return StateDone
		}
		return StateRSS
	case StateRSS:
		if have >= quota {
			return StateDone
		}
		return StateWeb
	case StateWeb:
		return floorCheck(have, floor)
	default:
		return StateDone
	}
}

func floorCheck(have, floor int) State {
	if have < floor {
		return StateFallback
	}
	return StateDone
}
