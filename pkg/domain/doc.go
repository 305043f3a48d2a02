/*
Package domain contains the core domain models for the Petri experimentation engine.

It defines the fundamental entities of an experiment: Subjects progressing through
a pipeline of Stages, Treatment Groups they are assigned to, and the Filters that
gate inclusion and advancement. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Subject: One experimentation subject and its current state (attributes, group, stage).
  - Definition: The immutable experiment configuration (stages, groups, distribution mode).
  - FilterSpec: A declarative predicate gating subject inclusion or stage advancement.
  - Report: The outcome summary of a single run cycle.
*/
package domain
