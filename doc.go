/*
Package caravel automates releases for multi-package source workspaces.

Given the commit history of a workspace checkout, the engine decides which
packages need a new version, computes the next version from change
significance and dependency propagation, renders a changelog section per
package, and keeps a single outgoing release request in sync across runs
until it is merged and the packages are published.

The Engine type is the entry point; the CLI under cmd/caravel is a thin
wrapper around it. Collaborators (version control, the hosting platform,
the package registry, the API compatibility checker) are injected through
the interfaces in pkg/ports.
*/
package caravel
