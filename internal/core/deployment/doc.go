// Package deployment provides pure functions for the image pipeline.
//
// This package contains the functional core of the pipeline: artifact naming
// keyed by branch and git revision, checkout path layout, and the stage each
// pipeline operation moves a target to. All functions are pure (no I/O, no
// side effects).
//
// # Functions
//
//   - Naming: ImageName, LocalTag, RegistryImage, LatestImage, ServiceURL
//   - Revisions: ShortRevision
//   - Layout: SplitCheckout
//   - Stages: PlanOperation
//
// # Usage
//
// The engine (internal/engine) uses these functions to name artifacts, then
// drives git and docker through the remote shell.
//
//	rev, err := deployment.ShortRevision(head)
//	artifact := deployment.Artifact{Service: "ehb-service", Branch: "main", Revision: rev}
//	artifact.LocalTag() // "ehb-service-main:abcdef1"
package deployment
