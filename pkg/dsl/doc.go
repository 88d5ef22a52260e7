/*
Package dsl provides a Go DSL for programmatically constructing Manifold manifests.

It allows developers to declare workflows, entity types and transition policies using a fluent
builder instead of YAML documents. This is particularly useful for unit testing, embedding and
generating manifests from other sources.

Example usage:

	package main

	import (
		"github.com/aretw0/manifold/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Workflow("basic").
			States("new", "active", "resolved").
			Resolutions("fixed", "wont_fix").
			Edge("new", "active").Trigger("start").RequireAssignee().OnEnter("notify_assignee").
			Edge("active", "resolved").Trigger("resolve")

		b.TaskType("bug").Uses("basic").Children()
		b.Policy("assignee-on-active", "active", "assignee")

		// The resulting provider serves the manifest under version "v1"
		provider, _ := b.Build("v1")
		// ... pass provider to manifold.New("", manifold.WithProvider(provider))
	}
*/
package dsl
