package archive

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
	"github.com/ulikunitz/xz"
)

// zipModified is the timestamp of every written entry, so equal packages produce
// equal bytes.
var zipModified = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Save writes the package to filename in the format its extension names. If
// createParentDir is true, missing parent directories are created.
func (p *Package) Save(filename string, createParentDir bool) error {
	if err := validation.ValidatePath(filename); err != nil {
		return errors.NewIO("write", filename, err)
	}
	if err := validation.ValidateFilename(filepath.Base(filename)); err != nil {
		return errors.NewIO("write", filename, err)
	}
	format := validation.TypeFromExtension(filename)
	data, err := p.Encode(format)
	if err != nil {
		return err
	}
	if createParentDir {
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			return errors.NewIO("create directory for", filename, err)
		}
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.NewIO("write", filename, err)
	}
	return nil
}

// Encode serializes the package. A package read from a bare part is written as that
// part when the target is flat XML, and wrapped in a minimal package when the target
// is .docx.
func (p *Package) Encode(format validation.FileType) ([]byte, error) {
	switch format {
	case validation.FileTypeDocx:
		return p.encodeZip()
	case validation.FileTypeXML:
		return p.encodeFlat()
	case validation.FileTypeXMLXZ:
		flat, err := p.encodeFlat()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, errors.NewIO("compress", p.Name, err)
		}
		if _, err := w.Write(flat); err != nil {
			return nil, errors.NewIO("compress", p.Name, err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.NewIO("compress", p.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, errors.NewUnsupported(p.Name, "output format "+string(format), "write .docx, .xml or .xml.xz")
}

func (p *Package) encodeZip() ([]byte, error) {
	parts := p.parts
	if p.single {
		parts = p.minimalParts()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: zipModified})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if err := write(contentTypesPart, encodeContentTypes(parts)); err != nil {
		return nil, errors.NewIO("zip", p.Name, err)
	}
	for _, part := range parts {
		if err := write(part.Name, part.Data); err != nil {
			return nil, errors.NewIO("zip", p.Name+":"+part.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.NewIO("zip", p.Name, err)
	}
	return buf.Bytes(), nil
}

// minimalParts wraps a bare story part in the smallest valid package.
func (p *Package) minimalParts() []*Part {
	rels := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"+
		`<Relationships xmlns="%s"><Relationship Id="rId1" Type="%s" Target="%s"/></Relationships>`,
		xml.RelNamespace, RelOfficeDocument, singlePartName)
	main := p.index[singlePartName]
	return []*Part{
		{Name: "_rels/.rels", ContentType: contentTypeRels, Data: []byte(rels)},
		{Name: singlePartName, ContentType: contentTypeDocument, Data: main.Data},
	}
}

// encodeFlat writes a flat OPC package, or the bare part for single-part inputs.
func (p *Package) encodeFlat() ([]byte, error) {
	if p.single {
		return p.index[singlePartName].Data, nil
	}

	out := xml.NewDocument()
	root := out.CreateElement(namePkgPackage, "")
	out.SetRoot(root)
	for _, part := range p.parts {
		el := out.CreateElement(namePkgPart, "")
		out.SetAttr(el, namePkgName, "/"+part.Name)
		out.SetAttr(el, namePkgContentType, part.ContentType)
		out.AppendChild(root, el)

		if isXMLContentType(part.ContentType, part.Name) {
			tree, err := p.Tree(part.Name)
			if err != nil {
				return nil, err
			}
			data := out.CreateElement(namePkgXMLData, "")
			out.AppendChild(data, out.Import(tree, tree.Root()))
			out.AppendChild(el, data)
			continue
		}
		out.SetAttr(el, xml.Name{Space: xml.PkgNamespace, Local: "compression"}, "store")
		data := out.CreateElement(namePkgBinaryData, "")
		out.AppendChild(data, out.CreateText(base64.StdEncoding.EncodeToString(part.Data)))
		out.AppendChild(el, data)
	}
	out.NormalizeNamespaces()
	return out.Serialize(), nil
}

func isXMLContentType(contentType, name string) bool {
	if strings.HasSuffix(contentType, "+xml") || strings.HasSuffix(contentType, "/xml") {
		return true
	}
	return contentType == "" && strings.EqualFold(partExtension(name), "xml")
}
