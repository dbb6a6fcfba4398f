package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRefAcceptsIDsAndRecords(t *testing.T) {
	var refs []MemberRef
	payload := `["t-1", {"id": "t-2"}, {"id": null}, null, "", {"name": "no id"}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &refs))

	assert.Equal(t, []string{"t-1", "t-2", "", "", "", ""}, MemberIDs(refs))
}

func TestMemberRefRejectsOtherShapes(t *testing.T) {
	var refs []MemberRef
	assert.Error(t, json.Unmarshal([]byte(`[42]`), &refs))
	assert.Error(t, json.Unmarshal([]byte(`[{"id": 42}]`), &refs))
}
