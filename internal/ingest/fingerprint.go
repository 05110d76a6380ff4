package ingest

import (
	"fmt"

	"github.com/google/uuid"

	"rfp-assistant/internal/extractor"
)

// fingerprintTextPrefix is how many characters of a record's text take part
// in its identity. Records that agree on document, sheet, category and this
// prefix are considered the same content.
const fingerprintTextPrefix = 50

// Fingerprint computes the stable content identity for a record. It is a
// deterministic MD5-based UUID over (documentID, sheetName, category,
// text prefix), so re-ingesting identical content always yields the same
// vector id. Changing this derivation invalidates every previously stored
// id, so treat it as a compatibility break.
func Fingerprint(meta DocumentMetadata, rec extractor.Record) string {
	text := rec.Text
	if runes := []rune(text); len(runes) > fingerprintTextPrefix {
		text = string(runes[:fingerprintTextPrefix])
	}
	content := fmt.Sprintf("%s-%s-%s-%s", meta.ID, rec.SheetName, rec.Category, text)
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(content)).String()
}
