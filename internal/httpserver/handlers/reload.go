package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// trigger does a non-blocking send. false means a run is already queued.
func trigger(ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Reload triggers a deduplication pass and, when enabled, a watchlist import.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dedupTriggered := false
		if d.DedupTrigger != nil {
			if dedupTriggered = trigger(d.DedupTrigger); dedupTriggered {
				d.Logger.Info("manual deduplication triggered via endpoint",
					logger.String("remote_ip", r.RemoteAddr))
			} else {
				d.Logger.Warn("deduplication already pending",
					logger.String("remote_ip", r.RemoteAddr))
			}
		}

		importTriggered := false
		if d.ImportTrigger != nil {
			if importTriggered = trigger(d.ImportTrigger); importTriggered {
				d.Logger.Info("manual import triggered via endpoint",
					logger.String("remote_ip", r.RemoteAddr))
			} else {
				d.Logger.Warn("import already pending",
					logger.String("remote_ip", r.RemoteAddr))
			}
		}

		if dedupTriggered || importTriggered {
			w.WriteHeader(http.StatusAccepted)
			_, err := w.Write([]byte("✅ Reload triggered successfully\n"))
			logWriteErr(d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, err := w.Write([]byte("⏳ Reload already in progress, please wait\n"))
		logWriteErr(d.Logger, err)
	}
}

type triggerResponse struct {
	Triggered bool   `json:"triggered"`
	Job       string `json:"job"`
}

// TriggerDedup queues a deduplication pass.
func TriggerDedup(d deps.Deps) http.HandlerFunc {
	return triggerJob(d, "dedup", d.DedupTrigger)
}

// TriggerImport queues a watchlist import.
func TriggerImport(d deps.Deps) http.HandlerFunc {
	return triggerJob(d, "import", d.ImportTrigger)
}

func triggerJob(d deps.Deps, job string, ch chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ch == nil {
			writeError(w, http.StatusNotFound, job+" is not enabled")
			return
		}
		if !trigger(ch) {
			writeJSON(w, http.StatusTooManyRequests, triggerResponse{Job: job})
			return
		}
		d.Logger.Info("maintenance job triggered",
			logger.String("job", job),
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, triggerResponse{Triggered: true, Job: job})
	}
}
