package history

import (
	"log/slog"

	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// Recorder turns snapshot transitions into history writes. It is
// driven by the coordinator's change hook so it sees every successful
// poll cycle exactly once.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// OnChange records per zone track starts and closes out entries for
// zones that stopped playing or disappeared.
func (r *Recorder) OnChange(prev, next *coordinator.Snapshot) {
	if next == nil {
		return
	}
	for zone, pi := range next.Playback {
		if isPlaying(pi) {
			if err := r.store.RecordTrack(zone, pi); err != nil {
				r.logger.With(
					slog.String("zone", zone),
					slog.String("error", err.Error()),
				).Error("Failed to record playback")
			}
			continue
		}
		if prev != nil {
			if last, ok := prev.Playback[zone]; ok && isPlaying(last) {
				if err := r.store.DeactivateZone(zone); err != nil {
					r.logger.With(
						slog.String("zone", zone),
						slog.String("error", err.Error()),
					).Error("Failed to close playback entry")
				}
			}
		}
	}
	if prev == nil {
		return
	}
	for zone, last := range prev.Playback {
		if _, stillThere := next.Playback[zone]; stillThere || !isPlaying(last) {
			continue
		}
		if err := r.store.DeactivateZone(zone); err != nil {
			r.logger.With(
				slog.String("zone", zone),
				slog.String("error", err.Error()),
			).Error("Failed to close playback entry for removed zone")
		}
	}
}

func isPlaying(pi mcws.PlaybackInfo) bool {
	return pi.FileKey > 0 && (pi.State == mcws.StatePlaying || pi.State == mcws.StatePaused)
}
