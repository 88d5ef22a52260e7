/*
Package manifold is a manifest-driven workflow engine for work-item trackers.

Each tenant declares the lifecycle of its entities in a manifest: workflows (states and the
edges between them), entity types bound to a workflow, and transition policies. Manifold
compiles a manifest version once, then validates and applies transitions against it.

# Concept

An entity is pinned to an immutable manifest version. A transition request names either an
explicit target state or a trigger. The engine checks that the move is a declared edge,
evaluates the edge guard and every policy for the target state, commits the new state through
the EntityStore under optimistic concurrency, and runs the edge's action hooks around the
commit.

# Key Features

  - Literal edges only: a transition is valid iff it is declared, never by transitivity.
  - Safe guards: a closed set of predicates over the entity snapshot. Unknown guards fail closed.
  - Optimistic concurrency: pass ExpectedVersion to detect concurrent writers, omit it to overwrite.
  - Best-effort hooks: on_leave and on_enter actions never abort a committed transition.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/manifold"
		"github.com/aretw0/manifold/pkg/domain"
	)

	func main() {
		// Manifests are read from ./manifests/<version>.yaml
		eng, err := manifold.New("./manifests")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		_, err = eng.Create(ctx, &domain.Entity{
			ID:              "BUG-1",
			TypeKind:        "TaskType",
			TypeID:          "bug",
			ManifestVersion: "v1",
		})
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Transition(ctx, domain.TransitionRequest{EntityID: "BUG-1", Trigger: "start"})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%s -> %s", res.From, res.To)
	}
*/
package manifold
