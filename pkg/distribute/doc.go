/*
Package distribute implements treatment-group assignment.

Two strategies are provided behind a single interface: Stochastic draws groups
at random (optionally weighted) and relies on volume for balance; Directed
inspects the current composition of every group and places each subject where
it minimizes stratum imbalance. The engine consults the experiment definition
to pick one at construction time.

Assignment is one-shot: the engine never calls a distributor for a subject
whose record already carries a group.
*/
package distribute
