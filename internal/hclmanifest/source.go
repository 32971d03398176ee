package hclmanifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/pluginhost/internal/ctxlog"
	"github.com/vk/pluginhost/internal/fsutil"
	"github.com/vk/pluginhost/internal/manifest"
)

// Extension is the file suffix manifest files must carry to be picked up.
const Extension = ".plugin.hcl"

// Source discovers plugin declarations from HCL manifest files. It maps each
// known package identifier to the directory tree holding its manifests.
type Source struct {
	roots map[string]string
}

// NewSource creates a Source over the given package -> manifest root mapping.
func NewSource(roots map[string]string) *Source {
	return &Source{roots: roots}
}

// Declared implements manifest.Source. Files are processed in the sorted
// order the finder yields, so a duplicate qualified name deterministically
// resolves to the declaration in the lexically later file.
func (s *Source) Declared(ctx context.Context, pkg, baseType string) ([]manifest.Record, error) {
	logger := ctxlog.FromContext(ctx)

	root, ok := s.roots[pkg]
	if !ok {
		return nil, &manifest.SourceError{Package: pkg, Err: fmt.Errorf("no manifest root registered for package")}
	}

	filePaths, err := fsutil.FindFilesByExtension(root, Extension)
	if err != nil {
		return nil, &manifest.SourceError{Package: pkg, Err: err}
	}
	if len(filePaths) == 0 {
		logger.Warn("No plugin manifest files found in package root.", "package", pkg, "path", root)
		return nil, nil
	}
	logger.Debug("Found plugin manifest files.", "package", pkg, "files", filePaths)

	parser := hclparse.NewParser()
	var records []manifest.Record

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, &manifest.SourceError{Package: pkg, Err: fmt.Errorf("failed to parse %s: %w", filePath, diags)}
		}

		var parsed manifestFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
			return nil, &manifest.SourceError{Package: pkg, Err: fmt.Errorf("failed to decode %s: %w", filePath, diags)}
		}

		for _, lib := range parsed.Libraries {
			for _, class := range lib.Classes {
				if baseType != "" && class.Base != baseType {
					logger.Debug("Skipping class with non-matching base capability.",
						"class", class.Name, "base", class.Base, "want", baseType)
					continue
				}

				meta, err := decodeMetadata(class.Metadata)
				if err != nil {
					return nil, &manifest.SourceError{Package: pkg, Err: fmt.Errorf("invalid metadata for class %q in %s: %w", class.Name, filePath, err)}
				}

				records = append(records, manifest.Record{
					Name:         class.Name,
					Type:         class.Type,
					Base:         class.Base,
					Description:  class.Description,
					Package:      pkg,
					Library:      lib.Name,
					ManifestPath: filePath,
					Metadata:     meta,
				})
			}
		}
	}

	logger.Info("Plugin manifests loaded.", "package", pkg, "declarations", len(records))
	return records, nil
}

// decodeMetadata flattens the open attribute set of a metadata block into a
// string map. Values of any cty-expressible primitive type are accepted and
// converted to their string form.
func decodeMetadata(block *metadataBlock) (map[string]string, error) {
	if block == nil {
		return nil, nil
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	meta := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: cannot convert %s to string: %w", name, val.Type().FriendlyName(), err)
		}
		meta[name] = strVal.AsString()
	}
	return meta, nil
}
