package model

// Channel is a chat channel that can be watched or replied to
type Channel struct {
	ID   string
	Name string
}

// Role is a group of users that can be mentioned
type Role struct {
	ID   string
	Name string
}
