package version

// Version is the current version of targetgod.
// This MUST be incremented for each build that includes changes.
// Use semantic versioning: MAJOR.MINOR.PATCH
// For very minor changes, append alpha characters (e.g., 1.2.3a, 1.2.3b)
const Version = "0.9.0"
