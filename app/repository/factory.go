package repository

import (
	"sync"

	"gorm.io/gorm"
)

var (
	globalRepos *Repositories
	initOnce    sync.Once
)

// InitializeFactory builds the process-wide repositories once. Later calls
// are no-ops, so the API and the worker can both call it during startup.
func InitializeFactory(db *gorm.DB) {
	initOnce.Do(func() {
		globalRepos = NewRepositories(db)
	})
}

// GetGlobalRepositories returns the repositories built by InitializeFactory.
func GetGlobalRepositories() *Repositories {
	if globalRepos == nil {
		panic("repositories not initialized, call InitializeFactory first")
	}
	return globalRepos
}
