// Package debatetypes defines core architectural interfaces for the debate engine.
// This file contains the fundamental interfaces that define the system's structure,
// including service registration and test-mode awareness.
package debatetypes

// Service defines the interface for debate engine services that provide specific functionality.
// Services are initialized at startup and accessed through the service registry.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry manages the registration and retrieval of services.
// It provides a centralized way to access services across the application.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}

// TestEnv reports whether the engine runs in deterministic test mode.
// Test mode swaps random UUIDs and wall-clock timestamps for deterministic ones.
type TestEnv interface {
	IsTestMode() bool
}
