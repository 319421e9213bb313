// Package driving defines the interfaces through which the outside world
// drives the core: the CLI and the webhook adapter call these, the core
// services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driving
