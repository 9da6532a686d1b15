package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifference(t *testing.T) {
	testCases := []struct {
		left     []string
		right    []string
		expected []string
	}{
		{left: []string{"mon-a", "mon-b", "mon-d"}, right: []string{"mon-a", "mon-b", "mon-c"}, expected: []string{"mon-d"}},
		{left: []string{"mon-a"}, right: []string{"mon-a"}, expected: nil},
		{left: nil, right: []string{"mon-a"}, expected: nil},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Difference(testCase.left, testCase.right))
	}
}

func TestFilter(t *testing.T) {
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, func(value int) bool { return value%2 == 0 }))
}
