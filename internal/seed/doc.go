// Package seed loads entity types, entities and statements from a YAML
// file and applies them to an entity system.
//
// A seed file looks like:
//
//	name: library
//	types:
//	  - name: Book
//	    description: A published book
//	    unique_names: true
//	entities:
//	  - key: plato
//	    type: Person
//	    name: Plato
//	  - key: republic
//	    type: Book
//	    name: Republic
//	statements:
//	  - subject: "@republic"
//	    predicate: description
//	    value: A Socratic dialogue
//	  - subject: "@plato"
//	    predicate: "Relation:authorOf"
//	    object: "Book:Republic"
//	    note: from the catalogue
//
// References are "@key" for an entity declared in the same file, a
// "Type:Name" identifier for an entity of a uniquely named type, or a TID
// in base-36 or base-10 form.
//
// Applying a seed twice does not duplicate types or uniquely named
// entities: existing ones are reused. Statements are always made.
package seed
