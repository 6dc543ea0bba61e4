package archive

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"
)

const (
	wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	relsNS = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
)

type entry struct {
	name, data string
}

func docXML(paras ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wNS + `><w:body>` + strings.Join(paras, "") + `<w:sectPr/></w:body></w:document>`
}

func wpara(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

func wrun(text string) string {
	return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

func rels(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships ` + relsNS + `>` +
		strings.Join(entries, "") + `</Relationships>`
}

func rel(id, typ, target string) string {
	return `<Relationship Id="` + id + `" Type="` + typ + `" Target="` + target + `"/>`
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/footnotes.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"/>` +
	`<Override PartName="/word/comments.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"/>` +
	`</Types>`

// buildZip writes the entries, in order, into a ZIP archive.
func buildZip(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: time.Now()})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildDocx builds a package holding a main document and optional extra parts. The
// main document relationships are given by docRels.
func buildDocx(t *testing.T, document string, docRels []string, extra ...entry) []byte {
	t.Helper()
	entries := []entry{
		{contentTypesPart, contentTypesXML},
		{"_rels/.rels", rels(rel("rId1", RelOfficeDocument, "word/document.xml"))},
		{"word/document.xml", document},
	}
	if len(docRels) > 0 {
		entries = append(entries, entry{"word/_rels/document.xml.rels", rels(docRels...)})
	}
	entries = append(entries, extra...)
	return buildZip(t, entries...)
}

func mustLoad(t *testing.T, name string, data []byte) *Package {
	t.Helper()
	pkg, err := Load(name, data)
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return pkg
}
