package gait

// Phase is the phase of the episode lifecycle that an environment is in
type Phase int

const (
	// Uninitialized environments have never been reset
	Uninitialized Phase = iota

	// Ready environments have been reset but not yet stepped
	Ready

	// Running environments are in the middle of an episode
	Running

	// Terminated environments must be reset before stepping again
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Terminated:
		return "Terminated"
	default:
		return "Uninitialized"
	}
}

// EpisodeContext records the progress of a single episode. A new
// EpisodeContext is created on every reset.
type EpisodeContext struct {
	Phase Phase

	// Step is the number of steps taken in the episode, excluding the
	// warm-up steps
	Step int

	// Return is the sum of rewards received in the episode. It is kept
	// for diagnostics only and never used to compute rewards.
	Return float64

	// Accumulator is the running value kept by cumulative tasks
	Accumulator float64

	// Time is the simulated time of the episode's state
	Time float64

	StepSize float64
	Accuracy float64
}

// newEpisode returns the context of an episode that has not started
func newEpisode(stepSize, accuracy float64) EpisodeContext {
	return EpisodeContext{
		Phase:    Ready,
		StepSize: stepSize,
		Accuracy: accuracy,
	}
}

// interval returns the start and end times of the episode's next step
func (e EpisodeContext) interval() (t0, t1 float64) {
	return float64(e.Step) * e.StepSize, float64(e.Step+1) * e.StepSize
}
