// Package quire holds build metadata shared by the quire binaries.
package quire

// Version is the current release of quire.
const Version = "0.1.0"
