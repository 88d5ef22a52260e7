/*
Package guard evaluates workflow guard predicates against an entity snapshot.

Guards come from tenant-authored manifests, so the evaluator is whitelist-only:
the set of guard kinds is closed (see Spec), field references are restricted to
a fixed set of snapshot keys, and anything unrecognized evaluates to false.
There is no expression language and no path that interprets manifest text as code.
*/
package guard
