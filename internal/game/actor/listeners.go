package actor

// Listener is notified after every stat recompute.
type Listener func(s *State)

type namedListener struct {
	name string
	fn   Listener
}

// Listeners is an ordered set of named change listeners.
type Listeners struct {
	entries []namedListener
}

// Add registers fn under name, replacing any listener with the same name.
func (l *Listeners) Add(name string, fn Listener) {
	for i := range l.entries {
		if l.entries[i].name == name {
			l.entries[i].fn = fn
			return
		}
	}
	l.entries = append(l.entries, namedListener{name: name, fn: fn})
}

// Remove drops the listener registered under name.
func (l *Listeners) Remove(name string) {
	for i := range l.entries {
		if l.entries[i].name == name {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Notify calls every listener in registration order.
func (l *Listeners) Notify(s *State) {
	for _, e := range l.entries {
		e.fn(s)
	}
}
