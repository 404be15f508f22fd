// Package internal contains the core implementation packages for tabi.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - browser: host capabilities (location, viewport, keyboard, frames,
//     intersection) and an in-memory host
//   - dom: article documents over goquery
//   - headings: heading id assignment and the active-heading observer
//   - viewport: breakpoint tracking
//   - nav: the navigation tree and its YAML form
//   - sidenav: the navigation drawer controller and view
//   - toc: the "On this page" controller and view
//   - loop: the per-session event loop
//   - bridge: websocket sessions that drive the controllers from a page
//   - site: content loading, page rendering and the HTTP server
//   - watcher: debounced file system monitoring
//   - config, logging, errors, version: ambient support
//
// # Inter-Package Communication
//
// Controllers never touch a real browser. They receive capability
// interfaces from browser; the bridge implements those capabilities by
// turning calls into commands for the page and page events into calls.
// The watcher feeds site, which asks the bridge hub to reload the pages
// whose source changed.
package internal
