package rerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	plain := errors.New("boom")

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"fatal", Fatal(plain), 1},
		{"unrecognized", plain, 1},
		{"corruption", Corruptf("bad mapfile: %v", plain), 2},
		{"panic", Panicf("invariant violated: %v", plain), 3},
		{"exit code override", WithCode(130, plain), 130},
		{"wrapped exit code override", Fatal(WithCode(2, plain)), 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ExitCode(c.err))
		})
	}
}

func TestWithCodeNil(t *testing.T) {
	assert.Nil(t, WithCode(1, nil))
}

func TestIsHelpers(t *testing.T) {
	plain := errors.New("x")
	assert.True(t, IsFatal(Fatal(plain)))
	assert.False(t, IsFatal(plain))
	assert.True(t, IsCorruption(Corruptf("y")))
	assert.True(t, IsPanic(Panicf("z")))
}
