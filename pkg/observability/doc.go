/*
Package observability provides tools for monitoring the transition engine.

It exposes Prometheus counters for cache behavior, transitions, rejections and
hook failures, and a bridge that turns them into domain.LifecycleHooks so that
they can be attached to an orchestrator without touching its code.
*/
package observability
