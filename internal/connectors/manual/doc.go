// Package manual implements the adapter for hand-maintained content.
//
// A manual connection points at a local inbox directory. JSON or YAML
// manifests describe resources field by field; HTML, Markdown and text
// files become assets. Pushing an edit rewrites the resource's manifest
// in place, and a Watcher can trigger a sync whenever the inbox changes.
package manual
