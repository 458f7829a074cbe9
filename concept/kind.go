package concept

// Kind is one of the five schema type kinds (§3).
type Kind uint8

const (
	EntityKind Kind = iota
	RelationKind
	AttributeKind
	RoleTypeKind
	StructKind
)

func (k Kind) String() string {
	switch k {
	case EntityKind:
		return "entity"
	case RelationKind:
		return "relation"
	case AttributeKind:
		return "attribute"
	case RoleTypeKind:
		return "role"
	case StructKind:
		return "struct"
	default:
		return "unknown-kind"
	}
}

// IsObjectKind reports whether k is one of the kinds that can own
// attributes and play roles (the "object types", entity ∪ relation, §3).
func (k Kind) IsObjectKind() bool {
	return k == EntityKind || k == RelationKind
}

// Ordering is the ordering mode of an owns or relates capability edge.
type Ordering uint8

const (
	Unordered Ordering = iota
	Ordered
)

func (o Ordering) String() string {
	if o == Ordered {
		return "ordered"
	}
	return "unordered"
}
