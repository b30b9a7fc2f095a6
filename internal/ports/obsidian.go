package ports

// ObsidianOpener defines the interface for opening canvases in Obsidian
type ObsidianOpener interface {
	// OpenFile opens the vault-relative canvas path using the obsidian:// URI scheme
	OpenFile(relPath string) error
}
