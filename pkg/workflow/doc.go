/*
Package workflow executes the state machines declared in a manifest.

An Engine answers questions about one workflow (initial state, literal edge
membership, permitted triggers, trigger targets) and about the entity-type
hierarchy (parent/child validity). It holds no state of its own: every method
reads the compiled manifest.Ast it is given and never modifies it.

A transition is valid only when its (from, to) pair is declared verbatim.
Reachability through intermediate states is never implied.
*/
package workflow
