// Package blockpress is the client for the BlockPress blogging service.
//
// The service is a remote actor exposing a small set of typed procedures for
// posts, categories and user identity over a CBOR-RPC websocket protocol. A
// Client is a handle binding that procedure surface to one identity: build it
// through a Factory, use it for any number of calls, and discard it when the
// identity changes. Handles are rebuilt, never mutated.
//
//	factory, err := blockpress.NewFactory(blockpress.Config{URL: u, Deployment: blockpress.Local})
//	if err != nil { ... }
//	handle := factory.Build(nil) // anonymous
//	posts, err := handle.GetPosts(ctx)
//
// Deployments differ in which optional procedures and fields exist; the
// Capabilities value on the Config describes the connected revision, and
// defaults are derived from the deployment mode.
//
// The session lifecycle, content synchronization and composition layers that
// sit on top of this handle live in pkg/session, pkg/content and pkg/compose.
package blockpress
