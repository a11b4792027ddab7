// Package core provides the fundamental types and interfaces for the
// roadmap onboarding engine.
//
// This package contains:
//   - RoadMap, ReferencePoint and template data models with GORM annotations
//   - Store interface defining the persistence contract
//   - Error types shared by the scheduling and dispatch layers
//
// Most users should import the root package github.com/onboardkit/roadmapbot
// instead of this package directly.
package core
