package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}

func TestSegmenter_InlineNumberedClauses(t *testing.T) {
	segs := NewSegmenter().Segment("1. This is the Purpose. 2. The Company shall maintain confidentiality.")

	require.Len(t, segs, 2)
	assert.Equal(t, "This is the Purpose.", segs[0].Text)
	assert.Equal(t, "1.", segs[0].Marker)
	assert.Equal(t, "The Company shall maintain confidentiality.", segs[1].Text)
	assert.Equal(t, "2.", segs[1].Marker)
}

func TestSegmenter_LineAnchoredMarkers(t *testing.T) {
	text := `1. Definitions
"Confidential Information" means all non-public information.
2. Obligations
(a) The Recipient shall protect the information.
(b) The Recipient shall not copy it. It may be returned on request.
A. Miscellaneous terms apply to this Agreement.`

	segs := NewSegmenter().Segment(text)
	assert.Equal(t, []string{
		"Definitions",
		`"Confidential Information" means all non-public information.`,
		"Obligations",
		"The Recipient shall protect the information.",
		"The Recipient shall not copy it.",
		"It may be returned on request.",
		"Miscellaneous terms apply to this Agreement.",
	}, texts(segs))
	assert.Equal(t, "(a)", segs[3].Marker)
	assert.Equal(t, "A.", segs[6].Marker)
}

func TestSegmenter_NoDelimitersSentenceOnly(t *testing.T) {
	text := "The Supplier shall deliver the goods! Payment is due in thirty days? Late fees apply."
	segs := NewSegmenter().Segment(text)
	assert.Equal(t, []string{
		"The Supplier shall deliver the goods!",
		"Payment is due in thirty days?",
		"Late fees apply.",
	}, texts(segs))
}

func TestSegmenter_Abbreviations(t *testing.T) {
	text := "Acme Inc. agrees to pay, e.g. license fees, to Widget Co. on time. The term is one year."
	segs := NewSegmenter().Segment(text)
	assert.Equal(t, []string{
		"Acme Inc. agrees to pay, e.g. license fees, to Widget Co. on time.",
		"The term is one year.",
	}, texts(segs))
}

func TestSegmenter_WrappedLinesJoin(t *testing.T) {
	text := "The Receiving Party\nshall not disclose any\nConfidential Information."
	segs := NewSegmenter().Segment(text)
	require.Len(t, segs, 1)
	assert.Equal(t, "The Receiving Party shall not disclose any Confidential Information.", segs[0].Text)
}

func TestSegmenter_DecimalsAndNestedNumbers(t *testing.T) {
	text := "5.2 Fees of $1.5 million are payable.\n5.3 Interest accrues at 1.5 percent."
	segs := NewSegmenter().Segment(text)
	require.Len(t, segs, 2)
	assert.Equal(t, "5.2", segs[0].Marker)
	assert.Equal(t, "Fees of $1.5 million are payable.", segs[0].Text)
	assert.Equal(t, "Interest accrues at 1.5 percent.", segs[1].Text)
}

func TestSegmenter_EmptyAndWhitespace(t *testing.T) {
	s := NewSegmenter()
	assert.Empty(t, s.Segment(""))
	assert.Empty(t, s.Segment("   \n\t\r\n "))
}

func TestSegmenter_MarkerOnlyFallsBackToWholeText(t *testing.T) {
	segs := NewSegmenter().Segment(" 1. ")
	require.Len(t, segs, 1)
	assert.Equal(t, "1.", segs[0].Text)
}

func TestSegmenter_PreservesOrderAndDropsEmpty(t *testing.T) {
	text := "First clause here.\n\n\n(a)\nSecond clause here.\r\nThird clause here."
	segs := NewSegmenter().Segment(text)
	assert.Equal(t, []string{"First clause here.", "Second clause here.", "Third clause here."}, texts(segs))
	for _, s := range segs {
		assert.NotEmpty(t, strings.TrimSpace(s.Text))
	}
}
