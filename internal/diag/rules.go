package diag

// Structural findings.
var (
	DuplicateDependency = Rule{"DI0001", Warning, "dependency %s (member %s) is declared more than once, keeping the %s entry"}
	DependencyCycle     = Rule{"DI0003", Error, "dependency cycle: %s"}
	InheritanceCycle    = Rule{"DI0016", Error, "inheritance cycle through %s"}
)

// Resolution findings.
var (
	UnresolvedDependency    = Rule{"DI0002", Warning, "no service implements %s, required by %s"}
	NotAnInterface          = Rule{"DI0012", Error, "%s is not an interface and cannot be exposed"}
	DuplicateInterface      = Rule{"DI0013", Warning, "interface %s is listed more than once"}
	InterfaceNotImplemented = Rule{"DI0014", Error, "%s does not implement %s"}
	NoOpSkip                = Rule{"DI0015", Warning, "skip of %s has no effect, it would not have been registered"}
)

// Consistency findings.
var (
	SingletonDependsOnScoped    = Rule{"DI0004", Error, "singleton %s depends on scoped %s via %s (introduced by %s at inheritance level %d)"}
	SingletonDependsOnTransient = Rule{"DI0005", Warning, "singleton %s depends on transient %s via %s (introduced by %s at inheritance level %d), it will be captured for the lifetime of the process"}
	ContradictoryCondition      = Rule{"DI0009", Warning, "contradictory condition: %s"}
	NoOpConfigCondition         = Rule{"DI0010", Warning, "configuration condition on %q has neither equals nor not-equals and is ignored"}
	MalformedCondition          = Rule{"DI0011", Error, "malformed condition: %s"}
)

// Configuration misuse findings.
var (
	MultipleLifetimes          = Rule{"DI0006", Warning, "multiple lifetimes declared (%s), using %s"}
	ConditionWithoutLifetime   = Rule{"DI0007", Warning, "conditional registration without a lifetime annotation, using default %s"}
	MultipleConditions         = Rule{"DI0008", Warning, "%d conditional-registration requests declared, they are merged into one"}
	SharingForcedByConfig      = Rule{"DI0017", Info, "bindings share one instance because members %s are bound from configuration"}
	RegistrationOnAbstractType = Rule{"DI0018", Warning, "abstract type cannot be registered, ignoring %s"}
	InvalidDirective           = Rule{"DI0019", Error, "invalid directive ignored: %s"}
	IgnoredEmbedding           = Rule{"DI0020", Warning, "embedded service %s is not inherited from, only the first embedded service %s is a base"}
)

// InternalError is reported when analysis of a single service fails unexpectedly.
var InternalError = Rule{"DI0099", Error, "internal error: %v"}

// Rules lists every rule, ordered by code.
var Rules = []Rule{
	DuplicateDependency,
	UnresolvedDependency,
	DependencyCycle,
	SingletonDependsOnScoped,
	SingletonDependsOnTransient,
	MultipleLifetimes,
	ConditionWithoutLifetime,
	MultipleConditions,
	ContradictoryCondition,
	NoOpConfigCondition,
	MalformedCondition,
	NotAnInterface,
	DuplicateInterface,
	InterfaceNotImplemented,
	NoOpSkip,
	InheritanceCycle,
	SharingForcedByConfig,
	RegistrationOnAbstractType,
	InvalidDirective,
	IgnoredEmbedding,
	InternalError,
}
