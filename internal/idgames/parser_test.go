package idgames

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, doc string, singleFile bool) (*Response, error) {
	t.Helper()
	p := NewParser()
	p.SingleFile = singleFile
	return p.Parse(strings.NewReader(doc))
}

func TestParser_Directory(t *testing.T) {
	doc := `<idgames-response version="1.0"><content><dir><id>5</id><name>levels/doom2/</name></dir></content></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)

	assert.Equal(t, 1.0, resp.Version)
	assert.Empty(t, resp.ErrorMessage)
	assert.Empty(t, resp.WarningType)
	require.Len(t, resp.Entries, 1)

	dir, ok := resp.Entries[0].(*DirectoryEntry)
	require.True(t, ok, "expected *DirectoryEntry, got %T", resp.Entries[0])
	assert.Equal(t, 5, dir.ID)
	assert.Equal(t, "levels/doom2/", dir.Name)
	assert.Equal(t, "doom2", dir.DisplayName())
}

func TestParser_SingleFile(t *testing.T) {
	doc := `<idgames-response version="1.0"><content><id>100</id><title>Foo</title><rating>4.5</rating><textfile>Hello</textfile></content></idgames-response>`

	resp, err := parseString(t, doc, true)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)

	file, ok := resp.Entries[0].(*FileEntry)
	require.True(t, ok)
	assert.Equal(t, 100, file.ID)
	assert.Equal(t, "Foo", file.Title)
	assert.Equal(t, 4.5, file.Rating)
	assert.Equal(t, "Hello", file.TextFileContents)
}

func TestParser_ErrorWarningChild(t *testing.T) {
	doc := `<idgames-response version="1.0"><error><warning>Not found</warning></error></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	assert.Equal(t, "Not found", resp.ErrorMessage)
	assert.Empty(t, resp.Entries)
	assert.True(t, resp.HasError())
}

func TestParser_ErrorTypeAndMessage(t *testing.T) {
	doc := `<idgames-response version="3"><error><type>Invalid</type><message>No such file</message></error></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, resp.Version)
	assert.Equal(t, "Invalid", resp.ErrorType)
	assert.Equal(t, "No such file", resp.ErrorMessage)
}

func TestParser_Warning(t *testing.T) {
	doc := `<idgames-response version="3">
  <warning><type>Limit Warning</type><message>Too many results</message></warning>
  <content>
    <file><id>1</id><title>A</title></file>
  </content>
</idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	assert.Equal(t, "Limit Warning", resp.WarningType)
	assert.Equal(t, "Too many results", resp.WarningMessage)
	assert.Empty(t, resp.ErrorMessage)
	require.Len(t, resp.Entries, 1)
}

func TestParser_MixedListing(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<idgames-response version="3">
  <content>
    <dir>
      <id>12</id>
      <name>levels/doom/</name>
    </dir>
    <file>
      <id>42</id>
      <title>Scythe</title>
      <dir>levels/doom2/Ports/s-u/</dir>
      <filename>scythe.zip</filename>
      <size>2048</size>
      <age>1000000</age>
      <date>2003-10-01</date>
      <author>Erik Alm</author>
      <email>erik@example.com</email>
      <description>32 levels</description>
      <rating>4.75</rating>
      <votes>120</votes>
      <url>https://example.com/scythe.zip</url>
      <idgamesurl>idgames://42</idgamesurl>
    </file>
    <vote>
      <id>7</id>
      <file>42</file>
      <title>Scythe</title>
      <author>someone</author>
      <reviewtext>Great &amp; hard</reviewtext>
      <rating>5</rating>
    </vote>
  </content>
</idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)

	assert.Equal(t, EntryTypeDirectory, resp.Entries[0].Type())
	assert.Equal(t, EntryTypeFile, resp.Entries[1].Type())
	assert.Equal(t, EntryTypeVote, resp.Entries[2].Type())

	file := resp.Entries[1].(*FileEntry)
	assert.Equal(t, 42, file.ID)
	assert.Equal(t, "levels/doom2/Ports/s-u/", file.FilePath)
	assert.Equal(t, "scythe.zip", file.FileName)
	assert.Equal(t, 2048, file.FileSize)
	assert.Equal(t, int64(1000000), file.Timestamp)
	assert.Equal(t, "2003-10-01", file.Date)
	assert.Equal(t, "Erik Alm", file.Author)
	assert.Equal(t, 4.75, file.Rating)
	assert.Equal(t, 120, file.VoteCount)
	assert.Equal(t, "https://example.com/scythe.zip", file.URL)
	assert.Equal(t, "idgames://42", file.IdgamesURL)

	vote := resp.Entries[2].(*VoteEntry)
	assert.Equal(t, 7, vote.ID)
	assert.Equal(t, 42, vote.FileID)
	assert.Equal(t, "Great & hard", vote.ReviewText)
	assert.Equal(t, 5.0, vote.Rating)
	assert.Equal(t, "someone", vote.Author)
}

func TestParser_ReviewsKeepOrder(t *testing.T) {
	doc := `<idgames-response version="3"><content>
<id>9</id>
<credits>id Software</credits>
<base>New from scratch</base>
<buildtime>2 weeks</buildtime>
<editors>DoomBuilder</editors>
<bugs>None</bugs>
<reviews>
  <review><text>first</text><vote>3</vote><username>alice</username></review>
  <review><text>second</text><vote>4.5</vote></review>
</reviews>
<textfile>line one
line two</textfile>
</content></idgames-response>`

	resp, err := parseString(t, doc, true)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)

	file := resp.Entries[0].(*FileEntry)
	assert.Equal(t, "id Software", file.Credits)
	assert.Equal(t, "New from scratch", file.Base)
	assert.Equal(t, "2 weeks", file.BuildTime)
	assert.Equal(t, "DoomBuilder", file.EditorsUsed)
	assert.Equal(t, "None", file.Bugs)
	assert.Equal(t, "line one\nline two", file.TextFileContents)

	require.Len(t, file.Reviews, 2)
	assert.Equal(t, Review{Text: "first", Rating: 3, Username: "alice"}, file.Reviews[0])
	assert.Equal(t, Review{Text: "second", Rating: 4.5, Username: "Anonymous"}, file.Reviews[1])
}

func TestParser_CDataAndEntitiesAccumulate(t *testing.T) {
	doc := `<idgames-response version="1"><content><file><id>1</id><title>Part &amp; <![CDATA[Parcel]]></title></file></content></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "Part & Parcel", resp.Entries[0].(*FileEntry).Title)
}

func TestParser_UnknownTagsIgnored(t *testing.T) {
	doc := `<idgames-response version="1"><meta><x>1</x></meta><content><dir><id>1</id><shiny>new</shiny><name>a/</name></dir><gadget/></content></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "a/", resp.Entries[0].(*DirectoryEntry).Name)
}

func TestParser_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed numeric id", doc: `<idgames-response version="1"><content><file><id>abc</id></file></content></idgames-response>`},
		{name: "malformed rating", doc: `<idgames-response version="1"><content><vote><rating>five</rating></vote></content></idgames-response>`},
		{name: "malformed version", doc: `<idgames-response version="x"></idgames-response>`},
		{name: "truncated document", doc: `<idgames-response version="1"><content><dir><id>1</id>`},
		{name: "empty body", doc: ``},
		{name: "wrong root", doc: `<html><body>502 Bad Gateway</body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := parseString(t, tt.doc, false)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestParser_EmptyNumericLeftUnset(t *testing.T) {
	doc := `<idgames-response version="1"><content><file><id>3</id><size></size><rating> </rating></file></content></idgames-response>`

	resp, err := parseString(t, doc, false)
	require.NoError(t, err)
	file := resp.Entries[0].(*FileEntry)
	assert.Equal(t, 3, file.ID)
	assert.Zero(t, file.FileSize)
	assert.Zero(t, file.Rating)
}
