package mcp

const (
	descProfile      = "Profile name from the yuu-transfer config file"
	descRemotePath   = "Remote path; relative paths resolve against the login directory"
	descObjectKey    = "Object key or key prefix (a leading '/' is ignored)"
	descLocalPath    = "Local file or directory path"
	descClearFirst   = "Delete the destination before transferring (default: false)"
	descExcludeNames = "Comma-separated entry names to skip, added to the configured exclusions"
	descExcludeExts  = "Comma-separated extensions to skip (case-insensitive)"
	descExcludeGlobs = "Comma-separated doublestar globs, relative to the transfer root, to skip"
	descExt          = "Only consider names with this extension (optional)"

	errProfileRequired = "profile is required"
)
