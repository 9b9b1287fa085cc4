/*
Package runtime implements the orchestration core: the fulldomain and
subdomain controllers, the comparison engine and the finite-state pipeline
that sequences them.

The pipeline is single-threaded and synchronous; the only internally
parallel operation is the external solver run, which is opaque and blocks
until it returns. Every expensive step is gated by a persisted phase record
plus a filesystem check, so an interrupted run resumes from the first step
whose artifacts are missing.
*/
package runtime
