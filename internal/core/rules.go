package core

// RegisterDefaultRules installs the built-in rule set on an engine.
func RegisterDefaultRules(engine *RulesEngine) {
	engine.Register(TransferLifecycleRule())
	engine.Register(TagUniquenessRule())
}
