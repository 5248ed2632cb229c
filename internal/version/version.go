package version

// Version is overridden at build time with -ldflags "-X courtshuffle/internal/version.Version=...".
var Version = "dev"
