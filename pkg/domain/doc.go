/*
Package domain holds the value types shared across the Caravel engine:
packages and their change sets, version bumps, release decisions, changelog
sections, the release plan, and the error taxonomy.

Types here carry no behavior beyond what keeps their invariants checkable
(bump ordering, version arithmetic); all orchestration lives in the
dedicated packages.
*/
package domain
