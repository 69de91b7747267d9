// Package workspace provisions checkout directories for git-sourced builds.
//
// One-shot builds use an ephemeral manager: a fresh directory per build,
// removed once staging has completed. Watch and daemon modes use a
// persistent manager bound to a fixed path, keeping the checkout between
// builds so repeated fetches are incremental pulls instead of full clones.
package workspace
