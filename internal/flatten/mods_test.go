package flatten

import (
	"fmt"
	"strings"
	"testing"

	"modstab/internal/record"
	"modstab/internal/xmltree"
)

func parseDoc(t *testing.T, doc string) *xmltree.Element {
	t.Helper()
	root, err := xmltree.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return root
}

func flattenMods(t *testing.T, doc string) (*record.Record, []string) {
	t.Helper()
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	rec := record.New()
	if err := ModsRecord(rec, parseDoc(t, doc), "", warnf); err != nil {
		t.Fatalf("ModsRecord: %v", err)
	}
	rec.Finalize()
	return rec, warnings
}

func wantString(t *testing.T, rec *record.Record, col, want string) {
	t.Helper()
	v := rec.Value(col)
	if v == nil {
		t.Fatalf("column %q absent; have %v", col, rec.Columns())
	}
	if got := v.StringValue(); got != want {
		t.Fatalf("column %q: got %q, want %q", col, got, want)
	}
}

func TestModsRecord_Titles(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<titleInfo><title>Der Process</title><subTitle>Roman</subTitle></titleInfo>
		<titleInfo type="translated"><title>The Trial</title></titleInfo>
	</mods>`)

	wantString(t, rec, "titleInfo_title", "Der Process")
	wantString(t, rec, "titleInfo_subTitle", "Roman")
	if rec.Value("titleInfo_title-translated") != nil {
		t.Fatalf("typed titleInfo must not be tabled")
	}
}

func TestModsRecord_LanguagesMergeIntoOneSet(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<language><languageTerm authority="iso639-2b" type="code">ger</languageTerm></language>
		<language><languageTerm type="code">lat</languageTerm></language>
		<language><languageTerm type="code">ger</languageTerm></language>
	</mods>`)

	v := rec.Value("language_languageTerm")
	if v == nil {
		t.Fatalf("language_languageTerm absent; have %v", rec.Columns())
	}
	if got, want := v.Export(), `["ger","lat"]`; got != want {
		t.Fatalf("languages: got %v, want %q", got, want)
	}
}

func TestModsRecord_IdentifiersDiscriminatedByType(t *testing.T) {
	t.Parallel()

	rec, warnings := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<identifier type="isbn">123</identifier>
		<identifier type="urn">urn:x</identifier>
		<identifier>bare</identifier>
	</mods>`)

	wantString(t, rec, "identifier-isbn", "123")
	wantString(t, rec, "identifier-urn", "urn:x")
	wantString(t, rec, "identifier", "bare")

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "without type attribute") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a diagnostic for the untyped identifier, got %v", warnings)
	}
}

func TestModsRecord_NamesKeepDocumentOrder(t *testing.T) {
	t.Parallel()

	doc := `<mods xmlns="http://www.loc.gov/mods/v3">
		<name type="personal">
			<displayForm>Franz Kafka</displayForm>
			<role><roleTerm type="text">author</roleTerm></role>
		</name>
		<name type="personal">
			<namePart>Max</namePart><namePart>Brod</namePart>
			<role><roleTerm type="text">editor</roleTerm></role>
		</name>
	</mods>`

	rec, _ := flattenMods(t, doc)
	if got, want := rec.Value("name").Export(), `["Franz Kafka","Max Brod"]`; got != want {
		t.Fatalf("names: got %v, want %q", got, want)
	}
	if got, want := rec.Value("name_roleTerm").Export(), `["author","editor"]`; got != want {
		t.Fatalf("role terms: got %v, want %q", got, want)
	}

	// Swapping the name elements must change the sequence column.
	swapped, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<name><namePart>Max</namePart><namePart>Brod</namePart></name>
		<name><displayForm>Franz Kafka</displayForm></name>
	</mods>`)
	if got, want := swapped.Value("name").Export(), `["Max Brod","Franz Kafka"]`; got != want {
		t.Fatalf("swapped names: got %v, want %q", got, want)
	}
}

func TestModsRecord_OriginInfoPerEventType(t *testing.T) {
	t.Parallel()

	rec, warnings := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<originInfo eventType="publication">
			<publisher>Die Schmiede</publisher>
			<dateIssued keyDate="yes">1925</dateIssued>
			<place><placeTerm type="text">Berlin</placeTerm></place>
		</originInfo>
		<originInfo>
			<dateCreated>1914</dateCreated>
		</originInfo>
	</mods>`)

	wantString(t, rec, "originInfo-publication_publisher", "Die Schmiede")
	wantString(t, rec, "originInfo-publication_dateIssued", "1925")
	wantString(t, rec, "originInfo-publication_place_placeTerm", "Berlin")
	// Missing eventType is inferred from dateCreated.
	wantString(t, rec, "originInfo-production_dateCreated", "1914")

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "eventType=production") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an inference diagnostic, got %v", warnings)
	}
}

func TestModsRecord_DateNormalization(t *testing.T) {
	t.Parallel()

	// German day.month.year dates convert to ISO 8601; the keyDate element
	// wins over earlier siblings.
	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<originInfo eventType="publication">
			<dateIssued>01.02.1925</dateIssued>
			<dateIssued keyDate="yes">1926</dateIssued>
		</originInfo>
	</mods>`)
	wantString(t, rec, "originInfo-publication_dateIssued", "1926")

	rec, _ = flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<originInfo eventType="publication">
			<dateIssued>01.02.1925</dateIssued>
		</originInfo>
	</mods>`)
	wantString(t, rec, "originInfo-publication_dateIssued", "1925-02-01")

	// Non-specific century dates are accepted as-is.
	rec, _ = flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<originInfo eventType="publication">
			<dateIssued>18XX</dateIssued>
		</originInfo>
	</mods>`)
	wantString(t, rec, "originInfo-publication_dateIssued", "18XX")
}

func TestModsRecord_ClassificationAndSubjects(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<genre authority="gnd">novel</genre>
		<classification authority="ddc">833</classification>
		<classification authority="ddc">830</classification>
		<subject authority="gnd"><topic>Justiz</topic><topic>Schuld</topic></subject>
	</mods>`)

	if got, want := rec.Value("genre-gnd").Export(), `["novel"]`; got != want {
		t.Fatalf("genre: got %v, want %q", got, want)
	}
	if got, want := rec.Value("classification-ddc").Export(), `["830","833"]`; got != want {
		t.Fatalf("classification: got %v, want %q", got, want)
	}
	if got, want := rec.Value("subject-gnd_topic").Export(), `["Justiz","Schuld"]`; got != want {
		t.Fatalf("topics: got %v, want %q", got, want)
	}
}

func TestModsRecord_RecordIdentifierSource(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<recordInfo>
			<recordIdentifier source="gbv-ppn">PPN12345</recordIdentifier>
			<recordIdentifier source="other-db">X99</recordIdentifier>
		</recordInfo>
	</mods>`)

	wantString(t, rec, "recordInfo_recordIdentifier", "PPN12345")
	wantString(t, rec, "recordInfo_recordIdentifier-other-db", "X99")
}

func TestModsRecord_LocationFiltering(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<location type="former"><physicalLocation>Old place</physicalLocation></location>
		<location>
			<physicalLocation>Staatsbibliothek zu Berlin</physicalLocation>
			<physicalLocation displayLabel="dup">Staatsbibliothek zu Berlin</physicalLocation>
			<shelfLocator>4" Yu 3041</shelfLocator>
		</location>
	</mods>`)

	wantString(t, rec, "location_physicalLocation", "Staatsbibliothek zu Berlin")
	wantString(t, rec, "location_shelfLocator", `4" Yu 3041`)
}

func TestModsRecord_UnknownElementsDegradeGenerically(t *testing.T) {
	t.Parallel()

	rec, warnings := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<titleInfo><title>T</title></titleInfo>
		<futureElement><inner>x</inner></futureElement>
	</mods>`)

	// The unknown subtree is captured, not dropped.
	wantString(t, rec, "futureElement_inner", "x")

	found := false
	for _, w := range warnings {
		if strings.Contains(w, "unknown element <futureElement>") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unknown-element diagnostic, got %v", warnings)
	}
}

func TestModsRecord_SetColumnsOrderInvariant(t *testing.T) {
	t.Parallel()

	a, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<genre authority="gnd">a</genre><genre authority="gnd">b</genre>
	</mods>`)
	b, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<genre authority="gnd">b</genre><genre authority="gnd">a</genre>
	</mods>`)

	if ea, eb := a.Value("genre-gnd").Export(), b.Value("genre-gnd").Export(); ea != eb {
		t.Fatalf("set column depends on document order: %v vs %v", ea, eb)
	}
}

func TestModsRecord_RelatedItem(t *testing.T) {
	t.Parallel()

	rec, _ := flattenMods(t, `<mods xmlns="http://www.loc.gov/mods/v3">
		<relatedItem type="original">
			<recordInfo><recordIdentifier source="gbv-ppn">PPN777</recordIdentifier></recordInfo>
		</relatedItem>
		<relatedItem type="series">
			<titleInfo><title>Ignored</title></titleInfo>
		</relatedItem>
	</mods>`)

	wantString(t, rec, "relatedItem-original_recordInfo_recordIdentifier", "PPN777")
	if rec.Value("relatedItem-series_titleInfo_title") != nil {
		t.Fatalf("series relatedItem must not be tabled")
	}
}
