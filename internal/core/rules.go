package core

import "foundrycore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewCaptureHierarchyRule())
	engine.Register(NewReferenceIntegrityRule())
	engine.Register(NewSprintCapacityRule())
	return engine
}
