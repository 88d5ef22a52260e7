/*
Package manifest defines the tenant manifest model.

A Bundle is the raw, versioned document handed over by the authoring tool: an
ordered list of Defs, each tagged with a kind and an id. An Ast is the parsed,
typed and indexed form of a Bundle. Asts are built once per version id (see
internal/compiler and internal/cache) and never mutated afterwards.
*/
package manifest
