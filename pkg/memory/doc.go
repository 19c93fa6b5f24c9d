// Package memory provides in-memory implementations of the productinfo
// collaborators (published tree, content repository, store configuration,
// access control) backed by one Catalog. It is meant for tests, examples and
// small deployments that load their catalogue from a JSON fixture.
//
// The published tree only serves nodes marked published; the repository
// serves every node. Fetch failures can be injected per node to exercise the
// transient error paths of uncached resolution.
package memory
