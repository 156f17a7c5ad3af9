package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// logReporter is the fallback result reporter used when Redis is down at
// startup: outcomes are logged and lost.
type logReporter struct {
	log *logrus.Logger
}

func (r *logReporter) Report(_ context.Context, rec models.MatchRecord) {
	r.log.WithFields(logrus.Fields{
		"game":   rec.GameCode,
		"winner": rec.Winner,
		"loser":  rec.Loser,
	}).Warn("match result not persisted (no redis)")
}
