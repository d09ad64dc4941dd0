package store

import "queueboard/internal/models"

var transitionMap = map[string][]string{
	"advance":  {models.StatusWaiting},
	"complete": {models.StatusServing},
	"cancel":   {models.StatusWaiting},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
