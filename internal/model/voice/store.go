package voice

// Store exposes voice lookup for handlers and the style selector.
type Store interface {
	List() []Voice
	Styles() []string
	FindByID(id string) (Voice, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items  []Voice
	styles []string
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied voices.
func NewMemoryStore(items []Voice, styles []string) *MemoryStore {
	return &MemoryStore{
		items:  append([]Voice(nil), items...),
		styles: append([]string(nil), styles...),
	}
}

// List returns every catalogued voice.
func (s *MemoryStore) List() []Voice {
	return append([]Voice(nil), s.items...)
}

// Styles returns the catalogue-wide style list.
func (s *MemoryStore) Styles() []string {
	return append([]string(nil), s.styles...)
}

// FindByID looks up a voice by identifier.
func (s *MemoryStore) FindByID(id string) (Voice, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Voice{}, false
}
