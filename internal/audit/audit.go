// Package audit is the fire-and-forget sink for events that need a paper
// trail beyond normal logs (cheat reports, rejected reports). Recording
// never blocks and never fails the caller.
package audit

import "github.com/rs/zerolog/log"

type Recorder interface {
	Record(message, category string)
}

const (
	CategoryCheatReport = "cheat_report"
	CategoryRejected    = "rejected_action"
)

// Log writes audit entries to the process log under an audit marker.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Record(message, category string) {
	log.Info().
		Str("audit", category).
		Msg(message)
}
