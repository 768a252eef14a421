package dm

import (
	"fmt"
	"strings"
)

// Kind is the extension family a resource belongs to. Folders, items and
// versions created under a folder must share the folder's kind.
type Kind int

// Kinds. KindUnknown covers resources without an extension or with one that
// is not recognized.
const (
	KindUnknown Kind = iota
	KindCore
	KindBIM360
)

// Substrings of extension type strings that identify a kind.
const (
	bim360Marker = "bim360"
	coreMarker   = "core"
)

// ParseKind classifies an extension type such as
// "folders:autodesk.bim360:Folder". The BIM 360 marker is checked first.
func ParseKind(extensionType string) Kind {
	switch {
	case strings.Contains(extensionType, bim360Marker):
		return KindBIM360
	case strings.Contains(extensionType, coreMarker):
		return KindCore
	default:
		return KindUnknown
	}
}

// KindFromName parses a configuration value ("core", "bim360").
func KindFromName(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "core":
		return KindCore, nil
	case "bim360":
		return KindBIM360, nil
	default:
		return KindUnknown, fmt.Errorf("dm: unknown kind %q (want core or bim360)", name)
	}
}

func (k Kind) String() string {
	switch k {
	case KindCore:
		return "core"
	case KindBIM360:
		return "bim360"
	default:
		return "unknown"
	}
}

// ChildTypes are the extension types for resources created under a parent.
type ChildTypes struct {
	Kind    Kind
	Folder  string
	Item    string
	Version string
}

var childTypes = map[Kind]ChildTypes{
	KindCore: {
		Kind:    KindCore,
		Folder:  "folders:autodesk.core:Folder",
		Item:    "items:autodesk.core:File",
		Version: "versions:autodesk.core:File",
	},
	KindBIM360: {
		Kind:    KindBIM360,
		Folder:  "folders:autodesk.bim360:Folder",
		Item:    "items:autodesk.bim360:File",
		Version: "versions:autodesk.bim360:File",
	},
}

// TypeResolver maps a parent's extension type to its children's types.
// Parents of unknown kind resolve to Default.
type TypeResolver struct {
	Default Kind
}

// NewTypeResolver returns a resolver falling back to def. KindUnknown as
// the fallback means KindBIM360.
func NewTypeResolver(def Kind) TypeResolver {
	if def == KindUnknown {
		def = KindBIM360
	}

	return TypeResolver{Default: def}
}

// Kind returns the kind children of a parent with the given extension type
// inherit.
func (r TypeResolver) Kind(parentExtensionType string) Kind {
	if k := ParseKind(parentExtensionType); k != KindUnknown {
		return k
	}

	if r.Default == KindUnknown {
		return KindBIM360
	}

	return r.Default
}

// ChildTypes resolves the folder, item and version extension types for
// children of a parent with the given extension type.
func (r TypeResolver) ChildTypes(parentExtensionType string) ChildTypes {
	return childTypes[r.Kind(parentExtensionType)]
}
