// Package preview serves a generated site over HTTP and rebuilds it when the
// source tree changes or on a fixed interval. At most one build runs at a
// time; requests made during a build collapse into one follow-up build.
package preview
