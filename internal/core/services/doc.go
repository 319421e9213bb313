// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): unit assembly, ingestion
// routing, download dispatching and replication supervision.
package services
