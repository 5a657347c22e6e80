package events

import "time"

// FileChanged is emitted by the watcher for every relevant filesystem event.
type FileChanged struct {
	Path string
	Op   string
	At   time.Time
}

// BuildRequested asks the daemon to rebuild. Sources: watcher bursts, the
// scheduler, manual triggers.
type BuildRequested struct {
	Reason string
	Path   string // changed file for watcher-initiated requests, else empty
	At     time.Time
}

// BuildNow is emitted by the debouncer when a coalesced rebuild should run.
type BuildNow struct {
	Reason   string
	Requests int // how many BuildRequested events were coalesced
	At       time.Time
}

// BuildFinished reports a completed (or failed) build.
type BuildFinished struct {
	BuildID  string
	Outcome  string
	Changed  bool
	SiteHash string
	Pages    int
	Duration time.Duration
	Error    string
	At       time.Time
}
