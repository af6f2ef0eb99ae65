// Package model defines the data shared by the audit pipeline: targets, their
// resolved thresholds and options, decoded YSlow metrics, and per-target
// evaluation outcomes.
package model
