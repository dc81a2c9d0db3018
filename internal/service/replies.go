package service

import (
	"math/rand/v2"
)

// Preset welcome exchanges shown to a user who has never interacted.
var welcomePresets = []string{
	"Hello there! Welcome to our chat. I'm here to help you with anything you need. Feel free to ask me anything!",
	"Welcome! I'm Gale, your personal assistant. How can I help you today?",
	"Hi there! Thanks for reaching out. What brings you here today?",
}

// Canned counterpart replies. No model call is ever made; replies are
// picked from this fixed list.
var cannedReplies = []string{
	"Thanks for sharing that. I will take it in consideration and find the best solution for you.",
	"Thanks for sharing that. I appreciate your input!",
	"That's interesting! Tell me more about it.",
	"I understand. Let me think about how I can help.",
	"How lovely.",
	"That's a good point. Let me offer my thoughts on this.",
	"I see what you mean. Have you considered trying a different approach?",
	"Thanks for explaining. Is there anything specific you'd like me to help with?",
	"I appreciate you sharing that with me. Let's explore some solutions together.",
	"That's quite insightful! Would you like me to elaborate on any part of this topic?",
}

// ScriptedReplies picks scripted content at random. The intn function
// is injectable so tests can make the selection deterministic.
type ScriptedReplies struct {
	intn func(n int) int
}

func NewScriptedReplies() *ScriptedReplies {
	return &ScriptedReplies{intn: rand.IntN}
}

func (r *ScriptedReplies) Welcome() string {
	return welcomePresets[r.intn(len(welcomePresets))]
}

func (r *ScriptedReplies) Reply(userText string) string {
	return cannedReplies[r.intn(len(cannedReplies))]
}
