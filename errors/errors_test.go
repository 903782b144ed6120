package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/wonton/assert"
)

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name     string
		loc      Location
		expected string
	}{
		{
			name:     "everything",
			loc:      Location{Function: "LFoo;.f:()V", Address: 0x12, Line: 7},
			expected: "LFoo;.f:()V @0012 line 7",
		},
		{
			name:     "address only",
			loc:      Location{Address: 0x3},
			expected: "@0003",
		},
		{
			name:     "line without address",
			loc:      Location{Address: NoAddress, Line: 40},
			expected: "line 40",
		},
		{
			name:     "nothing",
			loc:      Location{Address: NoAddress},
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.loc.String())
		})
	}
}

func TestLocation_IsZero(t *testing.T) {
	assert.True(t, Location{Address: NoAddress}.IsZero())
	assert.True(t, Location{Address: NoAddress, Text: "x"}.IsZero())
	assert.False(t, Location{}.IsZero())
	assert.False(t, Location{Address: NoAddress, Function: "f"}.IsZero())
	assert.False(t, Location{Address: NoAddress, Line: 1}.IsZero())
}

func TestFormatError(t *testing.T) {
	err := Formatf(E1005, "bad %s", "table").At(3).In("f")
	assert.Equal(t, "format error: bad table (f @0003)", err.Error())
	assert.Equal(t, E1005, err.Code)

	err.In("g")
	assert.Equal(t, "f", err.Location.Function)

	assert.True(t, stderrors.Is(err, ErrFormat))
	assert.False(t, stderrors.Is(err, ErrLookup))

	var fe *FormatError
	assert.True(t, stderrors.As(fmt.Errorf("wrapped: %w", err), &fe))
	assert.Equal(t, 3, fe.Location.Address)
}

func TestFormatErrorCause(t *testing.T) {
	err := Formatf(E1001, "truncated dump").WithCause(io.ErrUnexpectedEOF)
	assert.Equal(t, "format error: truncated dump: unexpected EOF", err.Error())
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.True(t, stderrors.Is(err, ErrFormat))
}

func TestLookupError(t *testing.T) {
	err := Lookupf(E2001, 0x40, "no block at %04x", 0x40)
	assert.Equal(t, "lookup error: no block at 0040", err.Error())
	assert.Equal(t, 0x40, err.Target)

	err.At(0x2).In("LFoo;.f:()V")
	assert.Equal(t, "lookup error: no block at 0040 (LFoo;.f:()V @0002)", err.Error())
	assert.True(t, stderrors.Is(err, ErrLookup))
	assert.False(t, stderrors.Is(err, ErrFormat))
}

func TestFormatter(t *testing.T) {
	err := Formatf(E1001, "cannot parse instruction").
		In("LFoo;.f:()V").
		At(2).
		OnLine(12, "000178: zz").
		WithNote("expected an address column")

	expected := "format error[E1001]: cannot parse instruction\n" +
		"  --> LFoo;.f:()V @0002 line 12\n" +
		"   |\n" +
		"12 | 000178: zz\n" +
		"   = note: expected an address column\n"
	assert.Equal(t, expected, NewFormatter(false).Format(err.ToFormatted()))
	assert.Equal(t, expected, err.FriendlyErrorMessage())
}

func TestFormatterWideLineNumbers(t *testing.T) {
	err := Formatf(E1013, "bad registers").OnLine(1234, "      registers     : x")
	out := NewFormatter(false).Format(err.ToFormatted())
	assert.Contains(t, out, "1234 |       registers     : x\n")
	assert.Contains(t, out, "     |\n")
}

func TestFormatterHint(t *testing.T) {
	err := Lookupf(E2003, NoAddress, "method %s not found", "LFoo;.abs:(I)J")
	err.Suggestions = []Suggestion{{Value: "LFoo;.abs:(I)I", Distance: 1}}
	assert.Equal(t,
		"lookup error[E2003]: method LFoo;.abs:(I)J not found\n"+
			"   = hint: did you mean LFoo;.abs:(I)I?\n",
		NewFormatter(false).Format(err.ToFormatted()))
}

func TestFormatMultiple(t *testing.T) {
	f := NewFormatter(false)
	assert.Equal(t, "", f.FormatMultiple(nil))

	a := &FormattedError{Message: "a", Location: Location{Address: NoAddress}}
	b := &FormattedError{Kind: "lookup error", Code: E2001, Message: "b", Location: Location{Address: 4}}
	assert.Equal(t, "error: a\n", f.FormatMultiple([]*FormattedError{a}))
	assert.Equal(t,
		"error[1/2]: a\n"+
			"\n"+
			"lookup error[E2001]: b\n"+
			"  --> @0004\n"+
			"\n"+
			"found 2 errors\n",
		f.FormatMultiple([]*FormattedError{a, b}))
}

func TestFormatterColor(t *testing.T) {
	err := Formatf(E1006, "method has no branch at the end")
	plain := NewFormatter(false).Format(err.ToFormatted())
	assert.False(t, strings.Contains(plain, "\x1b["))
}

func TestSuggestSimilar(t *testing.T) {
	candidates := []string{"LFoo;.abs:(I)I", "LFoo;.pick:(I)I", "LBar;.abs:(J)J", "LFoo;.abs:(I)I"}
	assert.Equal(t,
		[]Suggestion{{Value: "LFoo;.abs:(I)I", Distance: 1}},
		SuggestSimilar("LFoo;.abs:(I)J", candidates))
	assert.Nil(t, SuggestSimilar("", candidates))
	assert.Nil(t, SuggestSimilar("LFoo;.abs:(I)J", nil))
	assert.Empty(t, SuggestSimilar("Lcom/other/Thing;.run:()V", candidates))
}

func TestSuggestSimilarLimit(t *testing.T) {
	got := SuggestSimilar("abcd", []string{"abce", "abcf", "abcg", "abch", "abcd"})
	assert.Len(t, got, MaxSuggestions)
	assert.Equal(t, "abce", got[0].Value)
}

func TestFormatSuggestions(t *testing.T) {
	assert.Equal(t, "", FormatSuggestions(nil))
	assert.Equal(t, "did you mean a?", FormatSuggestions([]Suggestion{{Value: "a"}}))
	assert.Equal(t, "did you mean one of: a, b?", FormatSuggestions([]Suggestion{{Value: "a"}, {Value: "b"}}))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("abc", "abc"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 1, editDistance("(I)I", "(I)J"))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "switch table pointer mismatch", E1005.Description())
	assert.Equal(t, "method not found", E2003.Description())
	assert.Equal(t, "unknown error", ErrorCode("E9999").Description())
	assert.Equal(t, "format", E1013.Category())
	assert.Equal(t, "lookup", E2002.Category())
	assert.Equal(t, "unknown", ErrorCode("E9999").Category())
	assert.Equal(t, "unknown", ErrorCode("E").Category())
	assert.Equal(t, "E1001", E1001.String())
	for code := range codeDescriptions {
		cat := code.Category()
		assert.True(t, cat == "format" || cat == "lookup", "%s has category %s", code, cat)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "format error", KindFormat.String())
	assert.Equal(t, "lookup error", KindLookup.String())
	assert.Equal(t, "error", Kind(0).String())
	assert.Equal(t, "format error", ErrFormat.Error())
}
