package hclmanifest

import (
	"github.com/hashicorp/hcl/v2"
)

// metadataBlock captures the free-form attributes of an optional `metadata`
// block. The attribute set is open, so the body is decoded manually.
type metadataBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// classBlock represents one `class "<qualified name>"` declaration inside a
// library block.
type classBlock struct {
	Name        string         `hcl:"name,label"`
	Type        string         `hcl:"type"`
	Base        string         `hcl:"base"`
	Description string         `hcl:"description,optional"`
	Metadata    *metadataBlock `hcl:"metadata,block"`
}

// libraryBlock represents a `library "<name>"` block grouping the classes
// one shared library exports.
type libraryBlock struct {
	Name    string        `hcl:"name,label"`
	Classes []*classBlock `hcl:"class,block"`
}

// manifestFile is the top-level structure of a *.plugin.hcl file.
type manifestFile struct {
	Libraries []*libraryBlock `hcl:"library,block"`
}
