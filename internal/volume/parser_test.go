package volume

import (
	"encoding/binary"
	"math/rand"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	volerrors "github.com/standardbeagle/volumefind/internal/errors"
)

// buildRecord packs a well-formed USN_RECORD_V2-shaped buffer for name,
// returning the raw bytes. Used both by the happy-path test and the
// equivalence fuzz test below.
func buildRecord(name string, fileRef, parentRef uint64) []byte {
	units := utf16.Encode([]rune(name))
	nameBytes := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(nameBytes[2*i:], u)
	}

	length := minRecordLength + len(nameBytes)
	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[offRecordLength:], uint32(length))
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 2)
	binary.LittleEndian.PutUint64(buf[offFileRef:], fileRef)
	binary.LittleEndian.PutUint64(buf[offParentRef:], parentRef)
	binary.LittleEndian.PutUint64(buf[offUSN:], 1000)
	binary.LittleEndian.PutUint64(buf[offTimestamp:], 132_000_000_000_000)
	binary.LittleEndian.PutUint32(buf[offReason:], 0x01)
	binary.LittleEndian.PutUint32(buf[offAttributes:], 0x20)
	binary.LittleEndian.PutUint16(buf[offNameLength:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint16(buf[offNameOffset:], uint16(minRecordLength))
	copy(buf[minRecordLength:], nameBytes)
	return buf
}

func TestParseRecordHappyPath(t *testing.T) {
	buf := buildRecord("report.docx", 42, 7)

	rec, consumed, err := ParseRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.EqualValues(t, 42, rec.FileRef)
	assert.EqualValues(t, 7, rec.ParentRef)
	assert.Equal(t, "report.docx", rec.NameScalar())
	assert.Equal(t, "report.docx", rec.NameSpan())
}

func TestParseRecordTwoInOneBuffer(t *testing.T) {
	a := buildRecord("a.txt", 1, 0)
	b := buildRecord("b.txt", 2, 0)
	buf := append(append([]byte{}, a...), b...)

	rec1, n1, err := ParseRecord(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", rec1.NameScalar())

	rec2, _, err := ParseRecord(buf[n1:], n1)
	require.NoError(t, err)
	assert.Equal(t, "b.txt", rec2.NameScalar())
}

func TestParseRecordRejectsShortBuffer(t *testing.T) {
	_, _, err := ParseRecord(make([]byte, 10), 0)
	var corrupt *volerrors.CorruptRecordError
	assert.ErrorAs(t, err, &corrupt)
}

func TestParseRecordRejectsBadMajorVersion(t *testing.T) {
	buf := buildRecord("x.txt", 1, 0)
	binary.LittleEndian.PutUint16(buf[offMajorVersion:], 99)
	_, _, err := ParseRecord(buf, 0)
	var corrupt *volerrors.CorruptRecordError
	assert.ErrorAs(t, err, &corrupt)
}

func TestParseRecordRejectsOverrunNameSpan(t *testing.T) {
	buf := buildRecord("x.txt", 1, 0)
	binary.LittleEndian.PutUint16(buf[offNameLength:], 9999)
	_, _, err := ParseRecord(buf, 0)
	var corrupt *volerrors.CorruptRecordError
	assert.ErrorAs(t, err, &corrupt)
}

func TestIsSystemMetadata(t *testing.T) {
	buf := buildRecord("$MFT", 0, 0)
	rec, _, err := ParseRecord(buf, 0)
	require.NoError(t, err)
	assert.True(t, rec.IsSystemMetadata())

	buf2 := buildRecord("normal.txt", 1, 0)
	rec2, _, err := ParseRecord(buf2, 0)
	require.NoError(t, err)
	assert.False(t, rec2.IsSystemMetadata())
}

// TestParserEquivalence checks that the scalar and span-based UTF-16
// decoders agree on a large set of pseudo-random names, including names
// containing surrogate pairs (emoji, CJK extension characters).
func TestParserEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabets := [][]rune{
		[]rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_.- "),
		[]rune("日本語ファイル名テスト"),
		[]rune("😀😁📁📄🎉"),
	}
	for i := 0; i < 4000; i++ {
		alphabet := alphabets[rng.Intn(len(alphabets))]
		n := 1 + rng.Intn(40)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		name := string(runes)
		buf := buildRecord(name, uint64(i), 0)
		rec, _, err := ParseRecord(buf, 0)
		require.NoError(t, err)
		require.Equal(t, rec.NameScalar(), rec.NameSpan(), "mismatch for name %q", name)
	}
}
