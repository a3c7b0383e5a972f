package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindoc/sasdoc/doc"
)

func unzipParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = string(content)
	}
	return parts
}

func TestRenderPPTXPackage(t *testing.T) {
	out, info, err := Render(sampleDocument(), FormatPPTX, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatPPTX, info.Name)

	parts := unzipParts(t, out)
	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
	} {
		assert.Contains(t, parts, name)
	}

	// Title slide plus one slide per populated section.
	slides := 0
	for name := range parts {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") && !strings.Contains(name, "_rels") {
			slides++
		}
	}
	assert.Equal(t, 7, slides)

	for i := 1; i <= slides; i++ {
		assert.Contains(t, parts, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i))
		assert.Contains(t, parts["[Content_Types].xml"], fmt.Sprintf("/ppt/slides/slide%d.xml", i))
	}
	assert.Equal(t, slides, strings.Count(parts["ppt/presentation.xml"], "<p:sldId "))
}

func TestRenderPPTXSlideContent(t *testing.T) {
	out, _, err := Render(sampleDocument(), FormatPPTX, Options{})
	require.NoError(t, err)
	parts := unzipParts(t, out)

	title := parts["ppt/slides/slide1.xml"]
	assert.Contains(t, title, "site_filter User Manual")
	assert.Contains(t, title, "SAS Macro Documentation")
	assert.Contains(t, title, `sz="4400"`)

	// Canonical order puts Parameters on the slide after Overview and Syntax.
	params := parts["ppt/slides/slide4.xml"]
	assert.Contains(t, params, "<a:tbl>")
	assert.Contains(t, params, "<a:t>Parameter</a:t>")
	assert.Contains(t, params, "<a:t>Site identifier</a:t>")
	assert.Equal(t, 3, strings.Count(params, "<a:tr "))

	overview := parts["ppt/slides/slide2.xml"]
	assert.Contains(t, overview, "<a:t>Overview</a:t>")
	assert.Contains(t, overview, "Filters subject records by site.")
}

func TestRenderPPTXEscapesText(t *testing.T) {
	d := doc.New("cmp")
	d.Set(doc.SectionOverview, doc.Text("Compares a < b & c > d."))

	out, _, err := Render(d, FormatPPTX, Options{})
	require.NoError(t, err)
	parts := unzipParts(t, out)

	overview := parts["ppt/slides/slide2.xml"]
	assert.Contains(t, overview, "Compares a &lt; b &amp; c &gt; d.")
	assert.NotContains(t, overview, "a < b")
}

func TestRenderPPTXFontPreference(t *testing.T) {
	out, _, err := Render(sampleDocument(), FormatPPTX, Options{FontFamily: "Calibri", FontSize: 14})
	require.NoError(t, err)
	parts := unzipParts(t, out)

	overview := parts["ppt/slides/slide2.xml"]
	assert.Contains(t, overview, `<a:latin typeface="Calibri"/>`)
	assert.Contains(t, overview, `sz="1400"`)
}
