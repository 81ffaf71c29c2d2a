package semaphore

//go:generate enumer -type=HandleState -trimprefix=State

// HandleState is the lifecycle state of a single acquisition.
//
//	Requested -> Blocked (0..n times) -> Held -> Released
type HandleState int

const (
	StateRequested HandleState = iota
	StateBlocked
	StateHeld
	StateReleased
)
