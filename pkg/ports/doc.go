/*
Package ports defines the driven ports (interfaces) for the Petri engine.

These interfaces decouple the run cycle from external implementations,
allowing the engine to work with various subject stores, definition sources,
and lock providers.

# Key Interfaces

  - SubjectSource / SubjectSink: where subjects are read from and written back to.
  - SubjectStore: a source and sink in one, with point lookups (Memory, File, Redis, Postgres).
  - DefinitionLoader: retrieves experiment definitions (e.g., from Loam or YAML files).
  - DistributedLocker: serializes runs of the same experiment across replicas.

The package also ships contract test suites (RunSubjectStoreContract,
RunDefinitionLoaderContract) that every adapter's tests run against.
*/
package ports
