package concept

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/value"
)

func TestDefineTypeAndLookup(t *testing.T) {
	s := NewSchema()
	person, err := s.DefineType(EntityKind, NewLabel("person"), NoType)
	require.NoError(t, err)

	found, ok := s.Lookup(NewLabel("person"))
	require.True(t, ok)
	require.Equal(t, person.ID, found.ID)

	_, err = s.DefineType(EntityKind, NewLabel("person"), NoType)
	require.Error(t, err, "redefining a label must fail")
}

func TestSupertypeForestRejectsKindMismatch(t *testing.T) {
	s := NewSchema()
	person, err := s.DefineType(EntityKind, NewLabel("person"), NoType)
	require.NoError(t, err)

	_, err = s.DefineType(RelationKind, NewLabel("marriage"), person.ID)
	require.Error(t, err, "supertype must share kind")
}

func TestTransitiveSubtypesAndSupertypes(t *testing.T) {
	s := NewSchema()
	animal, _ := s.DefineType(EntityKind, NewLabel("animal"), NoType)
	mammal, _ := s.DefineType(EntityKind, NewLabel("mammal"), animal.ID)
	dog, _ := s.DefineType(EntityKind, NewLabel("dog"), mammal.ID)

	subtypes := s.SubtypesOrSelf(animal.ID)
	require.True(t, subtypes.Contains(uint32(animal.ID)))
	require.True(t, subtypes.Contains(uint32(mammal.ID)))
	require.True(t, subtypes.Contains(uint32(dog.ID)))

	supertypes := s.SupertypesOrSelf(dog.ID)
	require.True(t, supertypes.Contains(uint32(dog.ID)))
	require.True(t, supertypes.Contains(uint32(mammal.ID)))
	require.True(t, supertypes.Contains(uint32(animal.ID)))

	require.True(t, s.IsSubtypeOf(dog.ID, animal.ID))
	require.False(t, s.IsSubtypeOf(animal.ID, dog.ID))
}

func TestOwnsClosureIsInherited(t *testing.T) {
	s := NewSchema()
	animal, _ := s.DefineType(EntityKind, NewLabel("animal"), NoType)
	dog, _ := s.DefineType(EntityKind, NewLabel("dog"), animal.ID)
	name, _ := s.DefineType(AttributeKind, NewLabel("name"), NoType)
	require.NoError(t, s.SetValueType(name.ID, value.String))

	require.NoError(t, s.Owns(animal.ID, name.ID, Unordered))

	closure := s.OwnsClosure(dog.ID)
	_, ok := closure[name.ID]
	require.True(t, ok, "dog must inherit owns(animal, name)")
}

func TestRelatesAssignsRoleToExactlyOneRelation(t *testing.T) {
	s := NewSchema()
	marriage, _ := s.DefineType(RelationKind, NewLabel("marriage"), NoType)
	employment, _ := s.DefineType(RelationKind, NewLabel("employment"), NoType)
	spouse, _ := s.DefineType(RoleTypeKind, NewScopedLabel("marriage", "spouse"), NoType)

	require.NoError(t, s.Relates(marriage.ID, spouse.ID, Unordered))

	err := s.Relates(employment.ID, spouse.ID, Unordered)
	require.Error(t, err, "a role type may belong to only one relation")

	owner, ok := s.RelationOf(spouse.ID)
	require.True(t, ok)
	require.Equal(t, marriage.ID, owner)
}

func TestPlaysClosureIsInherited(t *testing.T) {
	s := NewSchema()
	person, _ := s.DefineType(EntityKind, NewLabel("person"), NoType)
	student, _ := s.DefineType(EntityKind, NewLabel("student"), person.ID)
	marriage, _ := s.DefineType(RelationKind, NewLabel("marriage"), NoType)
	spouse, _ := s.DefineType(RoleTypeKind, NewScopedLabel("marriage", "spouse"), NoType)
	require.NoError(t, s.Relates(marriage.ID, spouse.ID, Unordered))
	require.NoError(t, s.Plays(person.ID, spouse.ID))

	closure := s.PlaysClosure(student.ID)
	require.True(t, closure[spouse.ID])
}

func TestAnnotationValidOnRejectsMismatchedCategory(t *testing.T) {
	s := NewSchema()
	age, _ := s.DefineType(AttributeKind, NewLabel("age"), NoType)
	require.NoError(t, s.SetValueType(age.ID, value.Integer))

	err := s.Annotate(age.ID, RegexAnnotation("^[0-9]+$"))
	require.Error(t, err, "regex only valid on string-typed attributes")

	err = s.Annotate(age.ID, CardAnnotation(0, nil))
	require.NoError(t, err)
}

func TestStructDefinitionFieldRetirement(t *testing.T) {
	s := NewSchema()
	def := s.DefineStruct(NewLabel("address"))
	street := def.AddField(FieldDef{Name: "street", ValueType: value.String})
	def.AddField(FieldDef{Name: "zip", ValueType: value.String})

	def.RetireField(street)
	_, exists := def.Fields[street]
	require.False(t, exists)
	require.True(t, def.IsRetired(street))

	// A field added after retirement gets a fresh id, never street's id.
	newField := def.AddField(FieldDef{Name: "street2", ValueType: value.String})
	require.NotEqual(t, street, newField)
}
