package common

// DCCVersion is the current dcc version as a string.
const DCCVersion string = "0.3.0"

// DCCProfileFileName is the name for dcc build profile files.
const DCCProfileFileName string = "dcc.toml"

// DCCFileExt is the file extension for a dcc IR namespace file.
const DCCFileExt string = ".dcir"

// DefaultTriple is the architecture triple used when no profile or command
// line argument selects one.
const DefaultTriple string = "x86_64"

// DefaultEntryName is the function identity treated as the program entry
// point when a namespace does not name one explicitly.
const DefaultEntryName string = "main"
