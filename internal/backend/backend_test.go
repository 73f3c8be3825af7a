package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_Add(t *testing.T) {
	a := Report{Deleted: 1, Inserted: 2, Available: true}
	b := Report{Deleted: 3, Available: true}

	assert.Equal(t, Report{Deleted: 4, Inserted: 2, Available: true}, a.Add(b))
	assert.False(t, a.Add(Report{}).Available, "unavailable report poisons the sum")
}

func TestReport_Changed(t *testing.T) {
	assert.False(t, Report{Available: true}.Changed())
	assert.True(t, Report{Deleted: 1}.Changed())
	assert.True(t, Report{Inserted: 1}.Changed())
}
