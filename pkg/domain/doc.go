/*
Package domain contains the core domain models of the Manifold engine.

It defines the read-only entity projection that guards and policies operate on,
the transition request/result envelopes exchanged with callers, and the error
taxonomy surfaced by the orchestrator. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - EntitySnapshot: The projection of a work item exposed to guards and policies.
  - Entity: The record an EntityStore loads and saves (snapshot + type + version token).
  - TransitionRequest: A request to move an entity to a new state, explicitly or via a trigger.
  - TransitionResult: The committed outcome of a successful transition.
  - ValidationError, ConflictError, PolicyDeniedError, NotFoundError: the four failure kinds.
*/
package domain
