package service

import (
	"mcuhal-go/bus"
	"mcuhal-go/services/hal/internal/consts"
)

func topicConfigHAL() bus.Topic { return bus.T(consts.TokConfig, consts.TokHAL) }
func topicHALState() bus.Topic  { return bus.T(consts.TokHAL, consts.TokState) }

// hal/cap/<domain>/<kind>/<name>/...
func capBase(domain, kind, name string) bus.Topic {
	return bus.T(consts.TokHAL, consts.TokCap, domain, kind, name)
}

func capInfo(domain, kind, name string) bus.Topic {
	return capBase(domain, kind, name).Append(consts.TokInfo)
}
func capStatus(domain, kind, name string) bus.Topic {
	return capBase(domain, kind, name).Append(consts.TokStatus)
}
func capValue(domain, kind, name string) bus.Topic {
	return capBase(domain, kind, name).Append(consts.TokValue)
}
func capEventTagged(domain, kind, name, tag string) bus.Topic {
	return capBase(domain, kind, name).Append(consts.TokEvent, tag)
}

// hal/cap/+/+/+/control/+
func ctrlWildcard() bus.Topic {
	return bus.T(consts.TokHAL, consts.TokCap, "+", "+", "+", consts.TokControl, "+")
}

// parseCtrl splits hal/cap/<domain>/<kind>/<name>/control/<verb>.
func parseCtrl(t bus.Topic) (key capKey, verb string, ok bool) {
	if len(t) != 7 {
		return capKey{}, "", false
	}
	parts := make([]string, 0, 5)
	for _, i := range []int{2, 3, 4, 6} {
		s, isStr := t[i].(string)
		if !isStr || s == "" {
			return capKey{}, "", false
		}
		parts = append(parts, s)
	}
	return capKey{domain: parts[0], kind: parts[1], name: parts[2]}, parts[3], true
}
