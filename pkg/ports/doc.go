/*
Package ports defines the driven ports (interfaces) of the transition engine.

These interfaces decouple the orchestration logic from external implementations,
allowing the engine to work with various manifest sources and entity stores.

# Key Interfaces

  - ManifestProvider: Returns the raw manifest Bundle for an immutable version id.
  - EntityStore: Loads entities and saves them under optimistic concurrency.
  - Authorizer: Optional, caller-side ACL whose reasons merge into PolicyDeniedError.
  - TransitionService: The use case exposed by the orchestrator.
*/
package ports
