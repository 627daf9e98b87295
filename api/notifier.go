package api

import (
	"github.com/sirupsen/logrus"

	"github.com/warp/achievement-engine/engine"
)

// changeNotifier is the engine's change sink for this call site. The
// dashboard frontend polls point totals; here the event is surfaced as a
// structured log line, and the engine has already invalidated the scoped
// award cache before firing it.
type changeNotifier struct {
	log logrus.FieldLogger
}

var _ engine.Notifier = (*changeNotifier)(nil)

func (n *changeNotifier) AwardsChanged(id engine.AffiliateID) {
	n.log.WithField("affiliate", string(id)).Info("awards changed")
}
