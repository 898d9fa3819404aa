package session

import (
	"fmt"
	"os"
	"time"

	"ticket-kpi-exporter/internal/pipeline"
)

type fileStamp struct {
	path    string
	modTime time.Time
	size    int64
	loaded  bool
}

// stale stats the file and reports whether it differs from the last load.
func (f *fileStamp) stale() (os.FileInfo, bool, error) {
	if f.path == "" {
		return nil, false, nil
	}
	fi, err := os.Stat(f.path)
	if err != nil {
		return nil, false, err
	}
	if f.loaded && fi.ModTime().Equal(f.modTime) && fi.Size() == f.size {
		return fi, false, nil
	}
	return fi, true, nil
}

func (f *fileStamp) mark(fi os.FileInfo) {
	f.modTime, f.size, f.loaded = fi.ModTime(), fi.Size(), true
}

// Reloader refreshes a session from the configured report files. A file is
// read again only when its modification time or size changed, and never
// once the report was uploaded. Reload is not safe for concurrent use.
type Reloader struct {
	session  *Session
	pipeline *pipeline.Pipeline
	tickets  fileStamp
	logins   fileStamp
}

func NewReloader(s *Session, p *pipeline.Pipeline, ticketsPath, loginsPath string) *Reloader {
	return &Reloader{
		session:  s,
		pipeline: p,
		tickets:  fileStamp{path: ticketsPath},
		logins:   fileStamp{path: loginsPath},
	}
}

// Reload loads the changed files as one snapshot. It returns nil when
// nothing was replaced.
func (r *Reloader) Reload() (*Dataset, error) {
	uploadedTickets, uploadedLogins := r.session.Uploaded()

	var tickets *pipeline.TicketResult
	var ticketInfo os.FileInfo
	if !uploadedTickets {
		fi, stale, err := r.tickets.stale()
		if err != nil {
			return nil, fmt.Errorf("tickets: %w", err)
		}
		if stale {
			if tickets, err = r.pipeline.TicketsFile(r.tickets.path); err != nil {
				return nil, fmt.Errorf("tickets: %w", err)
			}
			ticketInfo = fi
		}
	}

	var logins *pipeline.LoginResult
	var loginInfo os.FileInfo
	if !uploadedLogins {
		fi, stale, err := r.logins.stale()
		if err != nil {
			return nil, fmt.Errorf("logins: %w", err)
		}
		if stale {
			if logins, err = r.pipeline.LoginsFile(r.logins.path); err != nil {
				return nil, fmt.Errorf("logins: %w", err)
			}
			loginInfo = fi
		}
	}

	ds := r.session.Refresh(tickets, logins)
	if ticketInfo != nil {
		r.tickets.mark(ticketInfo)
	}
	if loginInfo != nil {
		r.logins.mark(loginInfo)
	}
	return ds, nil
}
