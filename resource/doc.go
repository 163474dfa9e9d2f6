// Package resource bounds what a connectivity build may consume.
//
// A Controller limits three things:
//
//   - concurrent level builds (background slots),
//   - bytes read from tile storage per second (useful against remote stores),
//   - managed memory for the dense per-level arrays of a build.
//
// A nil *Controller imposes no limits, so callers can pass it through unconditionally.
package resource
