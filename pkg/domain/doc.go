/*
Package domain holds the core types of the nestor orchestration model: case
directories, extraction shapes, phase state, node correspondence maps,
boundary-condition sets and comparison results.

The types here are pure data plus small invariant-preserving methods. All IO
(artifact files, solver processes, state stores) lives behind the ports
defined in pkg/ports and the adapters under internal/adapters.
*/
package domain
