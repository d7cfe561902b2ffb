package logger

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Logger)
)

// Register stores a named logger, replacing any previous one.
func Register(name string, l *Logger) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = l
}

// Get returns the logger registered under name. Unregistered names get the
// global logger tagged with name as its component.
func Get(name string) *Logger {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// Unregister removes a named logger.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}
