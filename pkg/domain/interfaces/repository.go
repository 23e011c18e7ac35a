package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Action() ActionStore

	// Close releases backend resources
	Close() error
}
