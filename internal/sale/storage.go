package sale

import "sync"

// Storage is the main interface for the sale storage layer.
type Storage interface {
	Set(sale *Sale) error
	Read(id string) (*Sale, error)
	GetAll() ([]*Sale, error)
}

// LocalStorage provides an in-memory implementation for storing sales.
// Map access is guarded by its own mutex; the per-sale mutex serializes
// operations within one instance.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string]*Sale
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Sale{},
	}
}

// Set stores a sale. Returns ErrEmptyID if the sale has an empty ID.
func (l *LocalStorage) Set(sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[sale.ID] = sale
	return nil
}

// Read retrieves a sale by ID. Returns ErrNotFound if the sale is not found.
func (l *LocalStorage) Read(id string) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetAll retrieves all sales from the local storage.
func (l *LocalStorage) GetAll() ([]*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sales := make([]*Sale, 0, len(l.m))
	for _, s := range l.m {
		sales = append(sales, s)
	}
	return sales, nil
}
