// Package resources embeds the static data shipped inside the binary.
package resources

import "embed"

// LocatorFiles holds the locator catalogue under locators/*.yaml.
//
//go:embed locators/*.yaml
var LocatorFiles embed.FS
