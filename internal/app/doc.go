// Package app contains the core application logic: the App struct, its
// configuration, and the orchestrated release run, decoupled from any
// specific entrypoint like a CLI.
package app
