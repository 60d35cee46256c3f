package schema

// System is the TID of the system itself, used as editor for bootstrap
// statements and as the default creator.
const System int64 = 1

// Relations with fixed TIDs.
const (
	RelationIsOfType        int64 = 10
	RelationStatementEditor int64 = 11
	RelationCancelledBy     int64 = 12
	RelationStatementGroup  int64 = 13
)

// Attributes with fixed TIDs.
const (
	AttributeName                  int64 = 20
	AttributeDescription           int64 = 21
	AttributeMustHaveUniqueNames   int64 = 22
	AttributeOnlyOneAllowed        int64 = 23
	AttributeEditTimestamp         int64 = 24
	AttributeEditorialNote         int64 = 25
	AttributeCancellationTimestamp int64 = 26
	AttributeCancellationNote      int64 = 27
)

// Meta-types with fixed TIDs.
const (
	TypeEntityType int64 = 101
	TypeAttribute  int64 = 102
	TypeRelation   int64 = 103
)

// Entity type names.
const (
	TypeNameEntityType     = "EntityType"
	TypeNameAttribute      = "Attribute"
	TypeNameRelation       = "Relation"
	TypeNameDataType       = "DataType"
	TypeNameStatement      = "Statement"
	TypeNameStatementGroup = "StatementGroup"
	TypeNamePerson         = "Person"
	TypeNamePlace          = "Place"
	TypeNameArea           = "Area"
)

// Attribute names.
const (
	AttrName                  = "name"
	AttrDescription           = "description"
	AttrMustHaveUniqueNames   = "mustHaveUniqueNames"
	AttrOnlyOneAllowed        = "onlyOneAllowed"
	AttrEditTimestamp         = "editTimestamp"
	AttrEditorialNote         = "editorialNote"
	AttrCancellationTimestamp = "cancellationTimestamp"
	AttrCancellationNote      = "cancellationNote"
	AttrAlias                 = "alias"
	AttrAnnotation            = "annotation"
	AttrIsMerged              = "isMerged"
	AttrMergeTimestamp        = "mergeTimestamp"
)

// Relation names.
const (
	RelIsOfType        = "isOfType"
	RelStatementEditor = "statementEditor"
	RelCancelledBy     = "cancelledBy"
	RelStatementGroup  = "statementGroup"
	RelMergedInto      = "mergedInto"
	RelMergedBy        = "mergedBy"
)

// Data type names.
const (
	DataTypeBoolean   = "boolean"
	DataTypeInt       = "int"
	DataTypeDate      = "date"
	DataTypeJSON      = "json"
	DataTypeNumber    = "number"
	DataTypeString    = "string"
	DataTypeTimestamp = "timestamp"
)

// Boolean literals stored as attribute values.
const (
	ValueTrue  = "true"
	ValueFalse = "false"
)

// Definition is one seeded schema entity: a name and a short description.
// TID is zero for entities that get a generated TID at bootstrap.
type Definition struct {
	TID         int64
	Name        string
	Description string
}

// TypeDefinition is a seeded entity type.
type TypeDefinition struct {
	Definition
	UniqueNames bool
}

// EntityTypes are seeded in this order. The three meta-types come first so
// that everything else can be typed against them.
var EntityTypes = []TypeDefinition{
	{Definition{TypeEntityType, TypeNameEntityType, "The type of an entity"}, true},
	{Definition{TypeAttribute, TypeNameAttribute, "An attribute: a predicate whose payload is a literal value"}, true},
	{Definition{TypeRelation, TypeNameRelation, "A relation: a predicate whose payload is another entity"}, true},
	{Definition{0, TypeNameDataType, "A data type for attribute values"}, true},
	{Definition{0, TypeNameStatement, "A statement"}, false},
	{Definition{0, TypeNameStatementGroup, "A group of statements made together"}, false},
	{Definition{0, TypeNamePerson, "A person"}, false},
	{Definition{0, TypeNamePlace, "A place"}, false},
	{Definition{0, TypeNameArea, "A geographical area"}, false},
}

// Attributes seeded at bootstrap.
var Attributes = []Definition{
	{AttributeName, AttrName, "The entity's name"},
	{AttributeDescription, AttrDescription, "A short description of the entity"},
	{AttributeMustHaveUniqueNames, AttrMustHaveUniqueNames, "Indicates if a type has entities with unique names"},
	{AttributeOnlyOneAllowed, AttrOnlyOneAllowed, "Indicates if only one value or object is allowed for a specific predicate"},
	{AttributeEditTimestamp, AttrEditTimestamp, "Timestamp when a statement was made"},
	{AttributeEditorialNote, AttrEditorialNote, "Editorial note for a statement"},
	{AttributeCancellationTimestamp, AttrCancellationTimestamp, "Timestamp when a statement was cancelled"},
	{AttributeCancellationNote, AttrCancellationNote, "Editorial note for a cancellation"},
	{0, AttrAlias, "An alternative name for the entity"},
	{0, AttrAnnotation, "A free-form annotation"},
	{0, AttrIsMerged, "Indicates if the entity was merged into another"},
	{0, AttrMergeTimestamp, "The timestamp when a merge operation was performed"},
}

// Relations seeded at bootstrap.
var Relations = []Definition{
	{RelationIsOfType, RelIsOfType, "The type of an entity"},
	{RelationStatementEditor, RelStatementEditor, "The editor of a statement"},
	{RelationCancelledBy, RelCancelledBy, "The editor who cancelled a statement"},
	{RelationStatementGroup, RelStatementGroup, "The group a statement belongs to"},
	{0, RelMergedInto, "The entity into which the entity is merged"},
	{0, RelMergedBy, "The Person entity who performed a merge operation"},
}

// DataTypes seeded at bootstrap, all with generated TIDs.
var DataTypes = []Definition{
	{0, DataTypeBoolean, "a value that is either true or false"},
	{0, DataTypeInt, "an integer"},
	{0, DataTypeDate, "a date, with some degree of vagueness"},
	{0, DataTypeJSON, "a JSON string"},
	{0, DataTypeNumber, "a number, e.g., a floating point number or an integer"},
	{0, DataTypeString, "a string"},
	{0, DataTypeTimestamp, "an Unix timestamp"},
}

// OnlyOneAllowed lists the predicates constrained to a single active value.
var OnlyOneAllowed = []int64{AttributeName, AttributeDescription, RelationIsOfType}

// IsMetadataPredicate reports whether p is one of the predicates every
// statement or cancellation carries as metadata.
func IsMetadataPredicate(p int64) bool {
	switch p {
	case RelationStatementEditor, RelationStatementGroup, RelationCancelledBy,
		AttributeEditTimestamp, AttributeEditorialNote,
		AttributeCancellationTimestamp, AttributeCancellationNote:
		return true
	}
	return false
}
