package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRealtime(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<i>
	<chatserver>chat.bilibili.com</chatserver>
	<d p="12.5,1,25,16777215,1700000000,0,90a567c7,1234567890123456789">first comment</d>
	<d p="99.0,4,25,16711680,1700000100,0,87c8c3d,1234567890123456790">second comment</d>
	<d p="1,2,3">malformed attribute list</d>
</i>`

	items, err := ParseRealtime([]byte(doc))
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "first comment", items[0].Content)
	require.Equal(t, "90a567c7", items[0].MidHash)
	require.Equal(t, "second comment", items[1].Content)
	require.Equal(t, "87c8c3d", items[1].MidHash)
}

func TestParseRealtimeBadXML(t *testing.T) {
	_, err := ParseRealtime([]byte("<i><d"))
	require.Error(t, err)
}
