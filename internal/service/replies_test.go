package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRepliesDeterministicPick(t *testing.T) {
	r := NewScriptedReplies()
	r.intn = func(n int) int { return 1 }

	assert.Equal(t, welcomePresets[1], r.Welcome())
	assert.Equal(t, cannedReplies[1], r.Reply("anything"))
}

func TestScriptedRepliesAlwaysFromLists(t *testing.T) {
	r := NewScriptedReplies()

	welcomes := make(map[string]struct{}, len(welcomePresets))
	for _, w := range welcomePresets {
		welcomes[w] = struct{}{}
	}
	replies := make(map[string]struct{}, len(cannedReplies))
	for _, c := range cannedReplies {
		replies[c] = struct{}{}
	}

	for i := 0; i < 50; i++ {
		assert.Contains(t, welcomes, r.Welcome())
		assert.Contains(t, replies, r.Reply("hello"))
	}
}
