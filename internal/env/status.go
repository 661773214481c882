package env

type Status int

const (
	Uninitialized Status = iota
	Running
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether the episode has ended.
func (s Status) Terminal() bool {
	return s == Success || s == Failure
}
