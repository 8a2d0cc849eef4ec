// Package models provides shared data structures for the stretchsim project.
//
// This package contains the types exchanged between the simulation core,
// the control API, the client SDK and the CLI. By keeping them in a
// separate package, they can be imported by any component without creating
// circular dependencies.
//
// The models in this package represent:
//   - Enumerations: device kinds, actions, controller and pod states, message tags
//   - Payloads: the bodies carried by simulated packets
//   - Status snapshots: per-device state reported after every tick
//   - Transitions: state changes detected between two snapshots
//
// All structs include JSON tags for API serialization.
package models
