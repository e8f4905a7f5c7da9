package romfat

// The collaborators of a Resolver.
// Generated mock using mockgen:
//  mockgen -source=collaborators.go -destination=collaborators_mock_test.go -package romfat

// Enabler reports whether the synthetic volume is still enabled.
type Enabler interface {
	Enabled() bool
}

// FlagSetter persists the enabled flag. Setting the value it already holds must be a no-op.
type FlagSetter interface {
	SetPersistentFlag(enabled bool) error
}

// SessionHook is told when the host stops, ejects or loads the medium.
type SessionHook interface {
	SessionStopped(code uint8)
}

// EnablerFunc adapts a function to Enabler.
type EnablerFunc func() bool

func (f EnablerFunc) Enabled() bool {
	return f()
}

// SessionHookFunc adapts a function to SessionHook.
type SessionHookFunc func(code uint8)

func (f SessionHookFunc) SessionStopped(code uint8) {
	f(code)
}
