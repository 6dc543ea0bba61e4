package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/wmlcompare/core/errors"
	"github.com/FocuswithJustin/wmlcompare/core/xml"
	"github.com/FocuswithJustin/wmlcompare/internal/validation"
)

func samplePackage(t *testing.T) *Package {
	t.Helper()
	data := buildDocx(t, docXML(wpara(wrun("round trip"))),
		[]string{rel("rId5", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image", "media/image1.png")},
		entry{"word/media/image1.png", string(pngBytes)},
	)
	return mustLoad(t, "in.docx", data)
}

func assertSamePackage(t *testing.T, want, got *Package) {
	t.Helper()
	for _, name := range want.Parts() {
		wd, _ := want.Part(name)
		gd, ok := got.Part(name)
		if !ok {
			t.Errorf("part %s missing", name)
			continue
		}
		if want.index[name].ContentType != got.index[name].ContentType {
			t.Errorf("part %s content type %q, want %q", name, got.index[name].ContentType, want.index[name].ContentType)
		}
		if name == "word/media/image1.png" && !bytes.Equal(wd, gd) {
			t.Errorf("binary part %s changed", name)
		}
	}
	doc, err := got.Tree(got.MainPart())
	if err != nil {
		t.Fatal(err)
	}
	if text := doc.InnerText(doc.Root()); text != "round trip" {
		t.Errorf("main text = %q", text)
	}
}

func TestEncodeDocx(t *testing.T) {
	pkg := samplePackage(t)
	data, err := pkg.Encode(validation.FileTypeDocx)
	if err != nil {
		t.Fatal(err)
	}
	assertSamePackage(t, pkg, mustLoad(t, "out.docx", data))

	again, err := pkg.Encode(validation.FileTypeDocx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding is not deterministic")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if zr.File[0].Name != contentTypesPart {
		t.Errorf("first entry = %s, want %s", zr.File[0].Name, contentTypesPart)
	}
}

func TestEncodeFlat(t *testing.T) {
	pkg := samplePackage(t)
	for _, format := range []validation.FileType{validation.FileTypeXML, validation.FileTypeXMLXZ} {
		t.Run(string(format), func(t *testing.T) {
			data, err := pkg.Encode(format)
			if err != nil {
				t.Fatal(err)
			}
			got := mustLoad(t, "out."+string(format), data)
			if got.SinglePart() {
				t.Fatal("flat package read back as a single part")
			}
			assertSamePackage(t, pkg, got)
		})
	}
}

func TestEncodeSinglePart(t *testing.T) {
	src := docXML(wpara(wrun("round trip")))
	pkg := mustLoad(t, "document.xml", []byte(src))

	flat, err := pkg.Encode(validation.FileTypeXML)
	if err != nil {
		t.Fatal(err)
	}
	if string(flat) != src {
		t.Error("single part not written back as is")
	}

	data, err := pkg.Encode(validation.FileTypeDocx)
	if err != nil {
		t.Fatal(err)
	}
	got := mustLoad(t, "out.docx", data)
	if got.MainPart() != singlePartName {
		t.Errorf("MainPart = %q", got.MainPart())
	}
	if ct := got.index[singlePartName].ContentType; ct != contentTypeDocument {
		t.Errorf("content type = %q", ct)
	}
}

func TestSave(t *testing.T) {
	pkg := samplePackage(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "nested", "out.docx")
	if err := pkg.Save(path, true); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	assertSamePackage(t, pkg, got)

	if err := pkg.Save(filepath.Join(dir, "missing", "out.docx"), false); err == nil {
		t.Error("Save without parent directory should fail")
	}
	err = pkg.Save(filepath.Join(dir, "out.pdf"), false)
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Save to .pdf: %v, want ErrUnsupported", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.pdf")); !os.IsNotExist(statErr) {
		t.Error("unsupported format left a file behind")
	}
}

func TestSetTreeAndRelationships(t *testing.T) {
	pkg := samplePackage(t)
	clone := pkg.Clone()

	doc, err := xml.Parse([]byte(docXML(wpara(wrun("replaced")))))
	if err != nil {
		t.Fatal(err)
	}
	clone.SetTree(clone.MainPart(), "", doc)
	if orig, _ := pkg.Tree(pkg.MainPart()); orig.InnerText(orig.Root()) != "round trip" {
		t.Error("SetTree on a clone changed the original")
	}
	if ct := clone.index[clone.MainPart()].ContentType; ct != contentTypeDocument {
		t.Errorf("SetTree dropped the content type: %q", ct)
	}

	id, err := clone.AddRelationship(clone.MainPart(), RelComments, "comments.xml")
	if err != nil {
		t.Fatal(err)
	}
	if id != "rId1" {
		t.Errorf("new relationship id = %q, want rId1", id)
	}
	again, err := clone.AddRelationship(clone.MainPart(), RelComments, "comments.xml")
	if err != nil || again != id {
		t.Errorf("repeated AddRelationship = %q, %v", again, err)
	}
	rels, err := clone.Relationships(clone.MainPart())
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 2 {
		t.Errorf("relationships = %+v", rels)
	}
	if before, _ := pkg.Relationships(pkg.MainPart()); len(before) != 1 {
		t.Errorf("original relationships changed: %+v", before)
	}
}

func TestStoryParts(t *testing.T) {
	data := buildDocx(t, docXML(wpara(wrun("body"))),
		[]string{
			rel("rId1", RelHeader, "header1.xml"),
			rel("rId2", RelComments, "comments.xml"),
			rel("rId3", RelFootnotes, "footnotes.xml"),
			rel("rId4", RelHeader, "header1.xml"),
			rel("rId5", RelFooter, "footer9.xml"),
		},
		entry{"word/header1.xml", `<w:hdr ` + wNS + `/>`},
		entry{"word/comments.xml", commentsXML()},
		entry{"word/footnotes.xml", footnotesXML()},
	)
	got, err := mustLoad(t, "in.docx", data).StoryParts()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"word/document.xml", "word/header1.xml", "word/footnotes.xml"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("StoryParts = %v, want %v", got, want)
	}

	single := mustLoad(t, "doc.xml", []byte(docXML(wpara(wrun("x")))))
	if got, _ := single.StoryParts(); len(got) != 1 || got[0] != singlePartName {
		t.Errorf("single part StoryParts = %v", got)
	}
}
