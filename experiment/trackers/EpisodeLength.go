package trackers

import (
	"fmt"

	"github.com/samuelfneumann/gaitrl/experiment/tracker"
	"github.com/samuelfneumann/gaitrl/timestep"
)

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment, together with the way each episode ended.
//
// Note that an episode must finish for this Tracker to save its data.
// If the last episode in an experiment does not finish, that episode's
// length will not be saved.
type EpisodeLength struct {
	episodeLengths []int
	ends           []timestep.EndType
}

// NewEpisodeLength returns a new EpisodeLength Tracker
func NewEpisodeLength() *EpisodeLength {
	return &EpisodeLength{}
}

// Track caches the episode length if the timestep passed to it is the
// last timestep in the episode.
func (e *EpisodeLength) Track(t timestep.TimeStep) {
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, t.Number)
		e.ends = append(e.ends, t.End())
	}
}

// Data returns the lengths of all finished episodes
func (e *EpisodeLength) Data() []int {
	return append([]int(nil), e.episodeLengths...)
}

// Ends returns the number of finished episodes that ended in each way
func (e *EpisodeLength) Ends() map[timestep.EndType]int {
	counts := make(map[timestep.EndType]int)
	for _, end := range e.ends {
		counts[end]++
	}
	return counts
}

// Name implements the tracker.Tracker interface
func (e *EpisodeLength) Name() string {
	return "episode_length"
}

// Save saves the data tracked by the EpisodeLength Tracker to disk.
func (e *EpisodeLength) Save(filename string) error {
	if err := tracker.Encode(filename, e.episodeLengths); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

var (
	_ tracker.Tracker = (*EpisodeLength)(nil)
	_ tracker.Tracker = (*Return)(nil)
)
