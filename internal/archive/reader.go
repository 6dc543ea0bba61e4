package archive

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
	"github.com/ulikunitz/xz"
)

const contentTypesPart = "[Content_Types].xml"

var (
	namePkgPackage     = xml.Name{Space: xml.PkgNamespace, Local: "package"}
	namePkgPart        = xml.Name{Space: xml.PkgNamespace, Local: "part"}
	namePkgName        = xml.Name{Space: xml.PkgNamespace, Local: "name"}
	namePkgContentType = xml.Name{Space: xml.PkgNamespace, Local: "contentType"}
	namePkgXMLData     = xml.Name{Space: xml.PkgNamespace, Local: "xmlData"}
	namePkgBinaryData  = xml.Name{Space: xml.PkgNamespace, Local: "binaryData"}
)

// Open reads a package from disk. The format is detected from the content and must
// agree with the file extension when it has a known one.
func Open(filename string) (*Package, error) {
	if err := validation.ValidatePath(filename); err != nil {
		return nil, errors.NewIO("open", filename, err)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIO("open", filename, err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, errors.NewIO("read", filename, err)
	}
	return Load(filename, data)
}

// Load reads a package held in memory. name is used for format detection and in
// error messages.
func Load(name string, data []byte) (*Package, error) {
	format, err := validation.ValidateFileType(bytes.NewReader(data), name)
	if err != nil {
		return nil, &errors.ValidationError{Document: name, Field: "format", Message: err.Error()}
	}

	p := newPackage(name, format)
	switch format {
	case validation.FileTypeDocx:
		err = p.readZip(data)
	case validation.FileTypeXMLXZ:
		xzr, xerr := xz.NewReader(bytes.NewReader(data))
		if xerr != nil {
			return nil, errors.NewParse("xz", name, xerr.Error())
		}
		raw, rerr := readLimited(xzr)
		if rerr != nil {
			return nil, errors.NewIO("decompress", name, rerr)
		}
		err = p.readFlat(raw)
	case validation.FileTypeXML:
		err = p.readFlat(data)
	default:
		return nil, errors.NewUnsupported(name, string(format), "not a WordprocessingML package or part")
	}
	if err != nil {
		return nil, err
	}
	if err := p.findMain(); err != nil {
		return nil, err
	}
	return p, nil
}

// readLimited reads r up to validation.MaxFileSize bytes.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, validation.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > validation.MaxFileSize {
		return nil, fmt.Errorf("%w: more than %d bytes", validation.ErrTooLarge, validation.MaxFileSize)
	}
	return data, nil
}

func (p *Package) readZip(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.NewParse("ZIP", p.Name, err.Error())
	}

	var total uint64
	var contentTypes []byte
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if err := validPartName(f.Name); err != nil {
			return &errors.ValidationError{Document: p.Name, Field: f.Name, Message: err.Error()}
		}
		total += f.UncompressedSize64
		if total > validation.MaxFileSize {
			return errors.NewIO("unzip", p.Name, fmt.Errorf("%w: uncompressed content exceeds %d bytes", validation.ErrTooLarge, validation.MaxFileSize))
		}
		rc, err := f.Open()
		if err != nil {
			return errors.NewIO("unzip", p.Name+":"+f.Name, err)
		}
		content, err := readLimited(rc)
		rc.Close()
		if err != nil {
			return errors.NewIO("unzip", p.Name+":"+f.Name, err)
		}
		if f.Name == contentTypesPart {
			contentTypes = content
			continue
		}
		p.addPart(&Part{Name: f.Name, Data: content})
	}

	if contentTypes == nil {
		return &errors.ValidationError{Document: p.Name, Field: contentTypesPart, Message: "package has no content types part"}
	}
	types, err := parseContentTypes(contentTypes)
	if err != nil {
		return errors.NewParse("content types", p.Name, err.Error())
	}
	for _, part := range p.parts {
		part.ContentType = types.lookup(part.Name)
	}
	return nil
}

// validPartName rejects ZIP entry names that are not relative part names.
func validPartName(name string) error {
	if err := validation.ValidatePath(name); err != nil {
		return err
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("part name %q is not relative", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("part name %q has an empty or relative segment", name)
		}
	}
	return nil
}

// readFlat reads a flat OPC package (pkg:package) or, for any other root element, a
// single story part.
func (p *Package) readFlat(data []byte) error {
	doc, err := xml.Parse(data)
	if err != nil {
		return parseError(p.Name, data, err)
	}
	root := doc.Root()
	if !doc.Is(root, namePkgPackage) {
		p.single = true
		p.addPart(&Part{Name: singlePartName, ContentType: contentTypeDocument, Data: data})
		p.trees[singlePartName] = doc
		return nil
	}

	for _, el := range doc.ChildElements(root) {
		if !doc.Is(el, namePkgPart) {
			continue
		}
		name := strings.TrimPrefix(doc.AttrValue(el, namePkgName), "/")
		if err := validPartName(name); err != nil {
			return &errors.ValidationError{Document: p.Name, Field: "pkg:name", Message: err.Error()}
		}
		part := &Part{Name: name, ContentType: doc.AttrValue(el, namePkgContentType)}

		if x := doc.FirstChild(el, namePkgXMLData); x != xml.InvalidNode {
			kids := doc.ChildElements(x)
			if len(kids) != 1 {
				return &errors.ValidationError{Document: p.Name, Field: name, Message: "pkg:xmlData must hold exactly one element"}
			}
			tree := xml.NewDocument()
			tree.SetRoot(tree.Import(doc, kids[0]))
			tree.NormalizeNamespaces()
			part.Data = tree.Serialize()
			p.trees[name] = tree
		} else if b := doc.FirstChild(el, namePkgBinaryData); b != xml.InvalidNode {
			raw, err := base64.StdEncoding.DecodeString(stripSpace(doc.InnerText(b)))
			if err != nil {
				return errors.NewParse("base64", p.Name+":"+name, err.Error())
			}
			part.Data = raw
		}
		p.addPart(part)
	}
	return nil
}

// parseError reports an XML parse failure, with the position of the first
// well-formedness error when the decoder can locate one.
func parseError(path string, data []byte, err error) error {
	if res := xml.Validate(data); !res.Valid && len(res.Errors) > 0 {
		e := res.Errors[0]
		return errors.NewParse("XML", path, fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message))
	}
	return errors.NewParse("XML", path, err.Error())
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

// findMain locates the main document part through the package relationships.
func (p *Package) findMain() error {
	if p.single {
		p.main = singlePartName
		return nil
	}
	rels, err := p.Relationships("")
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.Type == RelOfficeDocument && !rel.External {
			p.main = ResolveTarget("", rel.Target)
			break
		}
	}
	if p.main == "" {
		if _, ok := p.index[singlePartName]; ok {
			p.main = singlePartName
		}
	}
	if _, ok := p.index[p.main]; !ok || p.main == "" {
		return &errors.ValidationError{Document: p.Name, Field: "officeDocument", Message: "package has no main document part"}
	}
	return nil
}

// partExtension returns the extension of a part name without the dot.
func partExtension(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}
