package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:22766"},
		{raw: "garbage", want: "127.0.0.1:22766"},
		{raw: "0.0.0.0:9000", want: "127.0.0.1:9000"},
		{raw: ":9000", want: "127.0.0.1:9000"},
		{raw: "[::]:9000", want: "127.0.0.1:9000"},
		{raw: "192.168.1.5:22766", want: "192.168.1.5:22766"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeAddr(tc.raw))
		})
	}
}
