// Package archive reads and writes WordprocessingML packages: .docx files (ZIP),
// flat XML (a single story part or a pkg:package), and xz-compressed flat XML. It
// turns package parts into comparer sources and writes comparison results back.
package archive

import (
	"github.com/FocuswithJustin/wmlcompare/core/comparer"
	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
)

// singlePartName names the story of an input that is a bare XML part.
const singlePartName = "word/document.xml"

// Part is one part of a package. Names have no leading slash.
type Part struct {
	Name        string
	ContentType string
	Data        []byte
}

// Package is an opened document package held in memory.
type Package struct {
	// Name is the path or label the package was loaded from.
	Name   string
	Format validation.FileType

	parts  []*Part
	index  map[string]*Part
	main   string
	single bool
	trees  map[string]*xml.Document
}

func newPackage(name string, format validation.FileType) *Package {
	return &Package{
		Name:   name,
		Format: format,
		index:  make(map[string]*Part),
		trees:  make(map[string]*xml.Document),
	}
}

func (p *Package) addPart(part *Part) {
	if old, ok := p.index[part.Name]; ok {
		*old = *part
		return
	}
	p.parts = append(p.parts, part)
	p.index[part.Name] = part
}

// Parts returns the part names in package order.
func (p *Package) Parts() []string {
	names := make([]string, len(p.parts))
	for i, part := range p.parts {
		names[i] = part.Name
	}
	return names
}

// Part returns the raw content of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	part, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return part.Data, true
}

// MainPart returns the name of the main document part.
func (p *Package) MainPart() string {
	return p.main
}

// SinglePart reports whether the package was read from a bare XML part.
func (p *Package) SinglePart() bool {
	return p.single
}

// Tree returns the parsed XML of a part. Trees are parsed once and shared; callers
// must not modify them.
func (p *Package) Tree(name string) (*xml.Document, error) {
	if doc, ok := p.trees[name]; ok {
		return doc, nil
	}
	part, ok := p.index[name]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "part", ID: p.Name + ":" + name}
	}
	doc, err := xml.Parse(part.Data)
	if err != nil {
		return nil, parseError(p.Name+":"+name, part.Data, err)
	}
	p.trees[name] = doc
	return doc, nil
}

// SetTree replaces the content of a part, adding the part if it does not exist.
func (p *Package) SetTree(name, contentType string, doc *xml.Document) {
	if part, ok := p.index[name]; ok && contentType == "" {
		contentType = part.ContentType
	}
	p.addPart(&Part{Name: name, ContentType: contentType, Data: doc.Serialize()})
	p.trees[name] = doc
}

// Source returns a comparer source for a story part. Drawings in the part hash the
// parts their relationships point to.
func (p *Package) Source(name string) (comparer.Source, error) {
	doc, err := p.Tree(name)
	if err != nil {
		return comparer.Source{}, err
	}
	resolver, err := p.resolver(name)
	if err != nil {
		return comparer.Source{}, err
	}
	label := p.Name
	if !p.single {
		label = p.Name + ":" + name
	}
	return comparer.Source{Name: label, Tree: doc, Parts: resolver}, nil
}

// MainSource returns the comparer source for the main document part.
func (p *Package) MainSource() (comparer.Source, error) {
	return p.Source(p.main)
}

// Clone returns a copy of the package sharing part data but not the part list, so
// that replacing parts in the copy leaves p unchanged.
func (p *Package) Clone() *Package {
	c := newPackage(p.Name, p.Format)
	c.main = p.main
	c.single = p.single
	for _, part := range p.parts {
		cp := *part
		c.addPart(&cp)
	}
	for name, doc := range p.trees {
		c.trees[name] = doc
	}
	return c
}
