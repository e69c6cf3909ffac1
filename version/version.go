package version

// Version is injected at build time via -ldflags "-X docview/version.Version=...".
var Version = "dev"
