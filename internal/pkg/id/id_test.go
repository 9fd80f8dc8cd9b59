package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PrefixedAndSortable(t *testing.T) {
	a := New("att")
	time.Sleep(2 * time.Millisecond)
	b := New("att")

	assert.True(t, strings.HasPrefix(a, "att_"))
	assert.Len(t, a, len("att_")+26)
	assert.Less(t, a, b)
}

func TestTime(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	got, err := Time("att", New("att"))
	require.NoError(t, err)
	assert.False(t, got.Before(before))

	_, err = Time("es", New("att"))
	assert.Error(t, err)
	_, err = Time("att", "att_not-a-ulid")
	assert.Error(t, err)
}
